package main

import (
	"fmt"
	"os"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	log "github.com/sirupsen/logrus"

	"crypto-export/internal/api"
	"crypto-export/internal/config"
	"crypto-export/internal/quotes"
	"crypto-export/internal/resolve"
	"crypto-export/internal/store"
)

func main() {
	cfgPath := os.Getenv("APP_CONFIG")
	if cfgPath == "" {
		cfgPath = "configs/app.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	if level, err := log.ParseLevel(cfg.Log.Level); err == nil {
		log.SetLevel(level)
	} else {
		log.Warnf("unknown log level %q, keeping info", cfg.Log.Level)
	}

	st, err := store.Open(cfg.Store.Sqlite.Path)
	if err != nil {
		log.Fatalf("store error: %v", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Errorf("store close error: %v", err)
		}
	}()

	client := quotes.NewCoinMarketCapClient(
		cfg.Quotes.BaseURL,
		cfg.Quotes.APIKey,
		cfg.Quotes.Currency,
		time.Duration(cfg.Quotes.TimeoutMs)*time.Millisecond,
	)
	svc := quotes.NewService(client, time.Duration(cfg.Quotes.MinRequestIntervalMs)*time.Millisecond)
	eng := resolve.New(st, cfg.Export.Secret, cfg.Export.DefaultTokens)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	h := server.Default(server.WithHostPorts(addr))
	api.RegisterRoutes(h, eng, svc, st, client.Currency())

	log.Infof("server starting on %s (log.level=%s)", addr, cfg.Log.Level)
	if err := h.Run(); err != nil {
		log.Fatalf("server run error: %v", err)
	}
}
