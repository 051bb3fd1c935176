package utils

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	log "github.com/sirupsen/logrus"
)

var Log = logrus.New()

func SetLogLevel(level string) {
	// We are not using logrus' trace and panic levels
	switch strings.ToLower(level) {
	case "debug":
		Log.SetLevel(log.DebugLevel)
	case "info":
		Log.SetLevel(log.InfoLevel)
	case "warning", "warn":
		Log.SetLevel(log.WarnLevel)
	case "error":
		Log.SetLevel(log.ErrorLevel)
	case "fatal":
		Log.SetLevel(log.FatalLevel)
	default:
		log.Fatal("Bad error level string")
	}
}

// Delay blocks for some time or until ctx is done.
type Delay func(ctx context.Context) error

// NoDelay returns immediately unless ctx is already done.
func NoDelay(ctx context.Context) error {
	return ctx.Err()
}

// Jitter returns a Delay that sleeps for a random duration in [min, max].
func Jitter(min, max time.Duration) Delay {
	if max < min {
		min, max = max, min
	}
	return func(ctx context.Context) error {
		d := min
		if span := int64(max - min); span > 0 {
			d += time.Duration(rand.Int63n(span + 1))
		}
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			return nil
		}
	}
}

// Truncate shortens s to at most n runes.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
