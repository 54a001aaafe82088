// Development entrypoint: same wiring as the root binary, but prints the
// effective processing configuration on startup and stops on plain Ctrl-C
// without the graceful-shutdown dance.
package main

import (
	"fmt"
	"log"

	"github.com/SocialPulseHQ/SocialPulse/internal/pkg/server"
)

func main() {
	app, cfg, shutdown := server.New()
	defer shutdown()

	log.Printf("socialpulse dev: %d queue workers, inline=%v, dedup window %s",
		cfg.QueueWorkers, cfg.ProcessInline, cfg.DedupWindow)

	if err := app.Listen(fmt.Sprintf("%s:%s", cfg.AppHost, cfg.AppPort)); err != nil {
		log.Fatal(err)
	}
}
