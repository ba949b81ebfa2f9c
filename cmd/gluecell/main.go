// Copyright 2026 Dispenso Robotics GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command gluecell runs the glue dispensing process against simulated
// hardware: a kinematic robot arm and an instant pump facade. It is the
// dry-run harness for the process state machine; real deployments inject
// their own RobotService and GlueHardware implementations.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dispenso/gluecell/pkg/broker"
	"github.com/dispenso/gluecell/pkg/config"
	"github.com/dispenso/gluecell/pkg/gluecell"
	"github.com/dispenso/gluecell/pkg/glueprocess"
	"github.com/dispenso/gluecell/pkg/logger"
	"github.com/dispenso/gluecell/pkg/service"
	"github.com/dispenso/gluecell/pkg/service/sim"
)

func main() {
	logger.Initialize()
	defer logger.Sync() //nolint:errcheck

	log := logger.For(logger.ComponentGlueProcess)

	configPath := flag.String("config", "", "path to the YAML configuration file")
	spray := flag.Bool("spray", false, "energize the pump while tracing (default is a dry run)")
	flag.Parse()

	cfg := config.DefaultConfig()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Errorw("failed to load configuration", "path", *configPath, "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if len(cfg.Cells) == 0 {
		cfg.Cells = []config.CellConfig{{GlueType: "Type A", MotorAddress: 1}}
	}

	if cfg.MetricsPort > 0 {
		go serveMetrics(cfg.MetricsPort)
	}

	b := broker.New()
	robot := newSimRobot(cfg, b)
	glue := sim.NewGlueHardware()
	cells := gluecell.NewRegistry(cfg.Cells)

	op, err := glueprocess.NewOperation(cfg, robot, glue, cells, b)
	if err != nil {
		log.Errorw("failed to build glue operation", "error", err)
		os.Exit(1)
	}

	states := b.Subscribe(broker.TopicProcessState)
	go func() {
		for msg := range states {
			log.Infow("process state changed", "state", msg.Payload)
		}
	}()

	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-interrupts
		log.Infow("interrupt received, stopping operation")
		if result, err := op.Stop(); err != nil || !result.Success {
			log.Warnw("stop request not honored", "error", err)
		}
	}()

	result := op.Start(demoPaths(cfg.Cells[0].GlueType), *spray, false)

	log.Infow("run finished",
		"success", result.Success, "message", result.Message, "state", op.State())
	if !result.Success {
		os.Exit(1)
	}
}

// newSimRobot builds the simulated arm with the configured position wait
// budget.
func newSimRobot(cfg config.Config, b *broker.Broker) *sim.Robot {
	robot := sim.NewRobot(sim.NewPublisher(b))
	robot.WaitBudget = cfg.Process.PositionWaitBudget
	return robot
}

func serveMetrics(port int) {
	log := logger.For(logger.ComponentGlueProcess)
	addr := fmt.Sprintf(":%d", port)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	log.Infow("serving metrics", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Errorw("metrics endpoint failed", "addr", addr, "error", err)
	}
}

// demoPaths is a two-segment square-ish trajectory sized for the simulated
// arm's step length.
func demoPaths(glueType string) []glueprocess.PathSegment {
	settings := glueprocess.Settings{
		glueprocess.KeyGlueType:     glueType,
		glueprocess.KeyVelocity:     100.0,
		glueprocess.KeyAcceleration: 50.0,
		glueprocess.KeyMotorSpeed:   8000.0,
		glueprocess.KeyFanSpeed:     2000.0,
	}

	return []glueprocess.PathSegment{
		{
			Points: []service.Position{
				{100, 0, 50, 0, 0, 0},
				{200, 0, 50, 0, 0, 0},
				{200, 100, 50, 0, 0, 0},
			},
			Settings: settings,
		},
		{
			Points: []service.Position{
				{200, 100, 50, 0, 0, 0},
				{100, 100, 50, 0, 0, 0},
				{100, 0, 50, 0, 0, 0},
			},
			Settings: settings,
		},
	}
}
