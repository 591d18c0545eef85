package main

import (
	"log"

	"github.com/parleyhq/parley/config"
	"github.com/parleyhq/parley/db"
	"github.com/parleyhq/parley/realtime"
	"github.com/parleyhq/parley/server"
	"github.com/parleyhq/parley/services"
)

func main() {
	conf, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	gormDB := db.GetDB(conf)
	authRepo := db.NewAuthRepo(gormDB)
	chatRepo := db.NewChatRepo(gormDB)

	authService := services.NewAuthService(authRepo, conf)
	chatService := services.NewChatService(chatRepo, authRepo, conf)
	aiService := services.NewAIService(conf)

	hub := realtime.NewHub()

	s := &server.Server{
		Config:         conf,
		AuthRepository: authRepo,
		ChatRepository: chatRepo,
		AuthService:    authService,
		ChatService:    chatService,
		AIService:      aiService,
		Hub:            hub,
		DB:             db.GormDB{},
	}

	s.Start()
}
