// Command boundaryinvalidate publishes a cache invalidation event for the
// boundary servers consuming INVALIDATION_TOPIC.
//
//	boundaryinvalidate -name=Bonnyrigg
//	boundaryinvalidate -bbox=-33.9,150.85,-33.8,150.95 -source=osm-diff
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/joho/godotenv"

	"github.com/mohammed-shakir/suburb-boundaries/internal/core/config"
	"github.com/mohammed-shakir/suburb-boundaries/internal/core/router"
	"github.com/mohammed-shakir/suburb-boundaries/internal/invalidation"
)

type producerFactory func(brokers []string) (sarama.SyncProducer, error)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr, invalidation.NewSyncProducer))
}

func run(args []string, stdout, stderr io.Writer, newProducer producerFactory) int {
	fl := flag.NewFlagSet("boundaryinvalidate", flag.ContinueOnError)
	fl.SetOutput(stderr)
	name := fl.String("name", "", "suburb name to invalidate")
	region := fl.String("region", "", "region of -name (consumer default when empty)")
	bbox := fl.String("bbox", "", "minLat,minLng,maxLat,maxLng to invalidate")
	source := fl.String("source", "boundaryinvalidate", "free-form origin recorded on the event")
	brokers := fl.String("brokers", "", "comma separated brokers (default from KAFKA_BROKERS)")
	topic := fl.String("topic", "", "topic (default from INVALIDATION_TOPIC)")
	if err := fl.Parse(args); err != nil {
		return 2
	}

	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		_, _ = fmt.Fprintf(stderr, "warning: .env: %v\n", err)
	}
	cfg := config.FromEnv()

	ev := invalidation.Event{Version: 1, TS: time.Now().UTC(), Source: *source}
	switch {
	case *bbox != "" && *name != "":
		_, _ = fmt.Fprintln(stderr, "use either -name or -bbox")
		return 2
	case *bbox != "":
		bb, err := router.ParseBBox(*bbox)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "invalid -bbox: %v\n", err)
			return 2
		}
		ev.Kind = invalidation.KindArea
		ev.BBox = &invalidation.BBox{MinLat: bb.MinLat, MinLng: bb.MinLng, MaxLat: bb.MaxLat, MaxLng: bb.MaxLng}
	case *name != "":
		ev.Kind, ev.Name, ev.Region = invalidation.KindName, *name, *region
	default:
		_, _ = fmt.Fprintln(stderr, "one of -name or -bbox is required")
		return 2
	}

	bs := cfg.Events.Brokers
	if *brokers != "" {
		bs = strings.Split(*brokers, ",")
	}
	t := cfg.Invalidation.Topic
	if *topic != "" {
		t = *topic
	}

	sp, err := newProducer(bs)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}
	p := invalidation.NewProducer(sp, t)
	defer func() { _ = p.Close() }()

	part, off, err := p.Publish(ev)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}
	_, _ = fmt.Fprintf(stdout, "published %s invalidation to %s (partition %d, offset %d)\n", ev.Kind, t, part, off)
	return 0
}
