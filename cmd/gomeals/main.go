package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/theheadmen/goMeals/internal/dbconnector"
	"github.com/theheadmen/goMeals/internal/server"
	"github.com/theheadmen/goMeals/internal/serverconfig"
	"github.com/theheadmen/goMeals/internal/uploader"
)

func main() {
	// .env нужен только для локального запуска, в остальных случаях его нет
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment as is")
	}

	configStore := serverconfig.NewConfigStore()
	configStore.ParseFlags()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := dbconnector.OpenDBConnect(configStore.FlagDatabase)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := db.DBInitialize(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	upl := uploader.NewCloudUploader(configStore.FlagUploadURL, configStore.FlagUploadPreset)
	ls := server.NewServerSystem(db, upl)
	srv := ls.MakeServer(configStore.FlagRunAddr)

	go func() {
		log.Printf("Starting server on %s\n", configStore.FlagRunAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Ожидание сигнала завершения
	<-ctx.Done()
}
