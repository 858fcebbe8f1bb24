/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/onairfm/apiserver/config"
	"github.com/onairfm/apiserver/internal/db"
	"github.com/onairfm/apiserver/internal/events"
	"github.com/onairfm/apiserver/internal/services"
	"github.com/onairfm/apiserver/internal/store"
	"github.com/onairfm/apiserver/types"
	"github.com/spf13/cobra"
)

// ingestCmd consumes externally submitted rating events from the broker
// and applies them through the same write path the HTTP API uses.
var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Consume submitted rating events from the broker",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.LoadConfig()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		bus, err := events.NewBus(ctx, cfg.Events)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to connect broker: %v\n", err)
			os.Exit(1)
		}
		if bus == nil {
			fmt.Fprintln(os.Stderr, "EVENTS_BACKEND is required for ingest")
			os.Exit(1)
		}
		defer bus.Close()

		dbConn, err := db.Open(ctx, cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to connect database: %v\n", err)
			os.Exit(1)
		}
		defer dbConn.Close()

		// Ingested votes are not republished; the recorded channel is
		// for votes that entered through the API.
		ratingService := services.NewRatingService(store.NewRatingRepository(dbConn), nil)

		err = bus.Subscribe(ctx, events.ChannelSubmitted, func(ctx context.Context, msg events.Message) error {
			event, err := events.DecodeRating(msg.Data)
			if err != nil {
				// Malformed events are dropped; redelivery cannot fix them.
				log.Printf("drop malformed rating event %s: %v", msg.ID, err)
				return nil
			}

			rating := types.Rating{
				SongID:        event.SongID,
				Identity:      event.Identity,
				SourceAddress: event.SourceAddress,
				Value:         event.Value,
				CreatedAt:     event.CreatedAt,
			}
			if err := ratingService.Record(ctx, rating); err != nil {
				if errors.Is(err, store.ErrInvalidRating) {
					log.Printf("drop invalid rating event %s: %v", msg.ID, err)
					return nil
				}
				return err
			}
			return nil
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			fmt.Fprintf(os.Stderr, "ingest error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}
