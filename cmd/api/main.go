// @title Habit Adventure API
// @description API for the gamified habit tracker "Habit Adventure"
// @BasePath /api/v1
// @schemes http
package main

import (
	"log"

	"github.com/limbo/habitadventure/internal/api"
	"github.com/limbo/habitadventure/internal/repository"
	"github.com/limbo/habitadventure/internal/service"
	"github.com/limbo/habitadventure/pkg/cleanup"
	"github.com/limbo/habitadventure/pkg/config"
	jwtservice "github.com/limbo/habitadventure/pkg/jwt_service"
)

func init() {
	service.InitValidator()
}

func main() {
	defer cleanup.CleanUp()
	cfg := config.New()
	dbCfg := repository.PGCfg{
		Address:  cfg.GetString("POSTGRES_DB_ADDRESS"),
		Username: cfg.GetString("POSTGRES_USER"),
		Password: cfg.GetString("POSTGRES_PASSWORD"),
		DB:       cfg.GetString("POSTGRES_DB"),
	}
	accountService := service.NewAccountService(repository.NewAccountsRepo(&dbCfg))
	cloudProgression := service.NewProgressionService(repository.NewDocumentRepo(&dbCfg))
	localProgression := service.NewProgressionService(
		repository.NewLocalRepo(cfg.GetStringOr("LOCAL_DATA_DIR", "./data")),
	)
	serv := api.New(&api.ServicesList{
		AccountService:   accountService,
		CloudProgression: cloudProgression,
		LocalProgression: localProgression,
		JwtService:       jwtservice.New(cfg.GetString("JWT_SECRET")),
	})
	err := serv.Run(cfg.GetString("API_ADDRESS"))
	if err != nil {
		log.Println("Server error: " + err.Error())
	}
}
