// Package main provides a CLI tool for running activity rollups on demand.
package main

import (
	"context"
	"errors"
	"flag"
	"log"

	"github.com/lotkeeper/internal/config"
	apperrors "github.com/lotkeeper/internal/errors"
	"github.com/lotkeeper/internal/models"
	"github.com/lotkeeper/internal/service"
	"github.com/lotkeeper/internal/storage"
)

func main() {
	realmID := flag.Int64("realm", 0, "Realm ID to roll up (0 rolls up every realm)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	postgres, err := storage.NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer postgres.Close()

	realmRepo := storage.NewRealmRepository(postgres.Pool())
	listingRepo := storage.NewListingRepository(postgres.Pool())
	rollupRepo := storage.NewRollupRepository(postgres.Pool())
	rollupService := service.NewRollupService(listingRepo, rollupRepo, cfg.Stats)

	ctx := context.Background()

	var realms []*models.ServerRealm
	if *realmID > 0 {
		realm, err := realmRepo.GetByID(ctx, *realmID)
		if err != nil {
			log.Fatalf("Failed to load realm %d: %v", *realmID, err)
		}
		if realm == nil {
			log.Fatalf("Realm %d not found", *realmID)
		}
		realms = []*models.ServerRealm{realm}
	} else {
		realms, err = realmRepo.List(ctx)
		if err != nil {
			log.Fatalf("Failed to list realms: %v", err)
		}
	}

	if len(realms) == 0 {
		log.Println("No realms registered, nothing to do")
		return
	}

	failed := 0
	for _, realm := range realms {
		rollup, err := rollupService.RollupRealm(ctx, realm.ID)
		if errors.Is(err, apperrors.ErrAggregationSkipped) {
			log.Printf("Realm %d (%s/%s): no priced listings, skipped", realm.ID, realm.Server, realm.Realm)
			continue
		}
		if err != nil {
			log.Printf("Realm %d (%s/%s): rollup failed: %v", realm.ID, realm.Server, realm.Realm, err)
			failed++
			continue
		}
		log.Printf("Realm %d (%s/%s): %d auctions, %d datapoints at %s",
			realm.ID, realm.Server, realm.Realm,
			rollup.TotalAuctions, rollup.DatapointCount, rollup.HourBucket.Format("2006-01-02 15:04"))
	}

	if failed > 0 {
		log.Fatalf("%d realm rollups failed", failed)
	}
}
