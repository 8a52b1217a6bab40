package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/trivium-ecommerce/fulfillment/internal/app"
	"github.com/trivium-ecommerce/fulfillment/internal/monitor"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s <status|stop>\n", os.Args[0])
	os.Exit(2)
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	if len(os.Args) != 2 {
		usage()
	}

	cfg := app.DefaultConfig().FromEnv()
	ctl := monitor.NewController(cfg.PIDPath(), log.WithField("component", "monitorctl"))

	switch os.Args[1] {
	case "status":
		state, pid := ctl.Status()
		if state == monitor.StateStopped {
			fmt.Println("monitor is stopped")
		} else {
			fmt.Printf("monitor is %s, pid %d\n", state, pid)
		}

	case "stop":
		if err := ctl.Stop(); err != nil {
			log.WithError(err).Fatal("монитор не остановлен")
		}
		fmt.Println("stop signal sent")

	default:
		usage()
	}
}
