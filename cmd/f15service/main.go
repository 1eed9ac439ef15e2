// Command f15service runs the Field 15 parser as a long-lived service: it
// subscribes to raw route descriptions on NATS, parses and persists them,
// republishes the result, and exposes the same parse/query operations over
// HTTP.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"field15parser/internal/api"
	"field15parser/internal/bus"
	"field15parser/internal/field15"
	"field15parser/internal/storage"
)

func main() {
	httpPort := flag.Int("http-port", 8080, "HTTP API port")
	natsURL := flag.String("nats-url", "nats://localhost:4222", "NATS server URL")
	chHost := flag.String("ch-host", "localhost", "ClickHouse host")
	chPort := flag.Int("ch-port", 9000, "ClickHouse port")
	chDB := flag.String("ch-db", "field15", "ClickHouse database")
	pgHost := flag.String("pg-host", "localhost", "PostgreSQL host")
	pgPort := flag.Int("pg-port", 5432, "PostgreSQL port")
	pgDB := flag.String("pg-db", "field15", "PostgreSQL database")
	pgUser := flag.String("pg-user", "field15", "PostgreSQL user")
	pgPassword := flag.String("pg-password", "field15", "PostgreSQL password")
	authEnabled := flag.Bool("auth", false, "Require an API key for /v1 routes")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ch, err := storage.OpenClickHouse(ctx, storage.ClickHouseConfig{
		Host: *chHost, Port: *chPort, Database: *chDB, User: "default",
	})
	if err != nil {
		log.Fatalf("open clickhouse: %v", err)
	}
	defer ch.Close()

	pg, err := storage.OpenPostgres(ctx, storage.PostgresConfig{
		Host: *pgHost, Port: *pgPort, Database: *pgDB, User: *pgUser, Password: *pgPassword,
	})
	if err != nil {
		log.Fatalf("open postgres: %v", err)
	}
	defer pg.Close()

	if err := ch.CreateSchema(ctx); err != nil {
		log.Fatalf("create clickhouse schema: %v", err)
	}
	if err := pg.CreateSchema(ctx); err != nil {
		log.Fatalf("create postgres schema: %v", err)
	}

	b, err := bus.Connect(bus.Config{URL: *natsURL, Name: "f15service"})
	if err != nil {
		log.Printf("nats unavailable, running without bus subscription: %v", err)
	} else {
		defer b.Close()
		sub, err := b.SubscribeRaw(func(msg bus.RawMessage) {
			handleRaw(ctx, b, ch, msg)
		})
		if err != nil {
			log.Printf("subscribe raw: %v", err)
		} else {
			defer sub.Unsubscribe()
		}
	}

	server := api.NewServer(ch, pg, api.Config{Port: *httpPort, AuthEnabled: *authEnabled})

	go func() {
		if err := server.Run(); err != nil {
			log.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")
}

func handleRaw(ctx context.Context, b *bus.Bus, ch *storage.ClickHouseDB, msg bus.RawMessage) {
	ers := field15.ParseF15(field15.Tokenize(msg.Field15))

	var firstError string
	if ers.NumberOfErrors() > 0 {
		firstError = ers.Errors()[0].Message
	}

	id := uint64(time.Now().UnixNano())
	params := storage.CHInsertParams{
		ID:           id,
		TraceID:      uuid.New(),
		Timestamp:    time.Now().UTC(),
		Rules:        ers.FirstElement().Rules.String(),
		ADEP:         msg.ADEP,
		ADES:         msg.ADES,
		RawField15:   msg.Field15,
		ERS:          elementsOf(ers),
		ElementCount: uint32(ers.NumberOfElements()),
		ErrorCount:   uint32(ers.NumberOfErrors()),
		FirstError:   firstError,
	}
	if err := ch.Insert(ctx, params); err != nil {
		log.Printf("insert parse event: %v", err)
		return
	}

	out := bus.ParsedMessage{
		EventID:      id,
		ADEP:         msg.ADEP,
		ADES:         msg.ADES,
		Field15:      msg.Field15,
		Rules:        ers.FirstElement().Rules.String(),
		ElementCount: ers.NumberOfElements(),
		ErrorCount:   ers.NumberOfErrors(),
		FirstError:   firstError,
		Timestamp:    time.Now().UTC(),
	}
	if err := b.PublishParsed(out); err != nil {
		log.Printf("publish parsed: %v", err)
	}
}

func elementsOf(ers *field15.ExtractedRouteSequence) []map[string]interface{} {
	elements := make([]map[string]interface{}, 0, ers.NumberOfElements())
	for i := 0; i < ers.NumberOfElements(); i++ {
		e := ers.ElementAt(i)
		elements = append(elements, map[string]interface{}{
			"point_name": e.PointName,
			"rules":      e.Rules.String(),
			"speed":      e.Speed,
			"level":      e.Level,
			"break_text": e.BreakText,
			"start":      e.Start,
			"end":        e.End,
		})
	}
	return elements
}
