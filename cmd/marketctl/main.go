package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/domino14/marketmaker/pkg/lmsr"
	"github.com/domino14/marketmaker/pkg/marketapi"
)

const usageText = `usage: marketctl [-config path] <command> [args]

commands:
  create -desc <description> [-liquidity b] <outcome> <outcome> [...]
  open <market>
  list
  orders <market>
  price <market> <outcome>
  buy <market> <outcome> <amount>
  sell <market> <outcome> <amount>
  resolve <market> <outcome>
  payout <market> <outcome>
  snapshot <market>
`

func usage() {
	fmt.Fprint(os.Stderr, usageText)
	os.Exit(2)
}

func main() {
	configPath := flag.String("config", "", "path to TOML config file")
	flag.Parse()
	args := flag.Args()
	if len(args) < 1 {
		usage()
	}

	cfg, err := marketapi.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatal().Err(err).Str("level", cfg.LogLevel).Msg("bad log level")
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	marketapi.EnsureMigrations(cfg)
	store, err := marketapi.NewSqliteStore(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open store")
	}
	defer store.Close()

	ctx := context.Background()
	if err := run(ctx, store, args); err != nil {
		log.Fatal().Err(err).Str("command", args[0]).Msg("command failed")
	}
}

func run(ctx context.Context, store *marketapi.SqliteStore, args []string) error {
	switch args[0] {
	case "create":
		fs := flag.NewFlagSet("create", flag.ExitOnError)
		desc := fs.String("desc", "", "market description")
		liquidity := fs.Float64("liquidity", lmsr.DefaultLiquidity, "liquidity constant b")
		fs.Parse(args[1:])
		if *desc == "" || fs.NArg() < 2 {
			usage()
		}
		uuid, err := store.CreateMarket(ctx, *desc, *liquidity, fs.Args())
		if err != nil {
			return err
		}
		fmt.Println(uuid)
		return nil

	case "open":
		if len(args) != 2 {
			usage()
		}
		return store.OpenMarket(ctx, args[1])

	case "list":
		markets, err := store.GetOpenMarkets(ctx)
		if err != nil {
			return err
		}
		return printJSON(markets)

	case "orders":
		if len(args) != 2 {
			usage()
		}
		orders, err := store.GetOrderBook(ctx, args[1], "", time.Time{}, 0)
		if err != nil {
			return err
		}
		return printJSON(orders)

	case "price":
		if len(args) != 3 {
			usage()
		}
		price, err := store.Price(ctx, args[1], args[2])
		if err != nil {
			return err
		}
		fmt.Printf("%.6f\n", price)
		return nil

	case "buy", "sell":
		if len(args) != 4 {
			usage()
		}
		amount, err := strconv.ParseUint(args[3], 10, 64)
		if err != nil {
			return fmt.Errorf("bad amount %q: %w", args[3], err)
		}
		cost, err := store.ExecuteTrade(ctx, args[1], args[2], amount, args[0] == "buy")
		if err != nil {
			return err
		}
		fmt.Printf("%.6f\n", cost)
		return nil

	case "resolve":
		if len(args) != 3 {
			usage()
		}
		return store.ResolveMarket(ctx, args[1], args[2])

	case "payout":
		if len(args) != 3 {
			usage()
		}
		payout, err := store.PayoutPerShare(ctx, args[1], args[2])
		if err != nil {
			return err
		}
		fmt.Printf("%.6f\n", payout)
		return nil

	case "snapshot":
		if len(args) != 2 {
			usage()
		}
		snap, err := store.GetSnapshot(ctx, args[1])
		if err != nil {
			return err
		}
		return printJSON(snap)

	default:
		usage()
		return nil
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
