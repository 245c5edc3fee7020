// Command token mints a bearer token for a caller identity, for local use
// against the API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/angelmondragon/stayregistry-backend/pkg/auth"
	"github.com/angelmondragon/stayregistry-backend/pkg/config"
	"github.com/angelmondragon/stayregistry-backend/pkg/logger"
	"github.com/angelmondragon/stayregistry-backend/pkg/types"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "token"})

	_ = godotenv.Load()

	identity := flag.String("identity", "", "caller identity carried in the token subject")
	flag.Parse()

	id, ok := types.ParseIdentity(*identity)
	if !ok {
		fmt.Fprintln(os.Stderr, "missing or invalid -identity")
		os.Exit(1)
	}

	var cfg config.JWTConfig
	if err := envconfig.Process(config.EnvPrefix, &cfg); err != nil {
		logg.Error(ctx, "failed to load jwt config", err)
		os.Exit(1)
	}

	token, err := auth.MintAccessToken(cfg, time.Now().UTC(), auth.AccessTokenPayload{Identity: id})
	if err != nil {
		logg.Error(logg.WithCaller(ctx, id.String()), "failed to mint token", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
