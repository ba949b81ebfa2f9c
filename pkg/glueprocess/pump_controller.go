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

package glueprocess

import (
	"time"

	"go.uber.org/zap"

	"github.com/dispenso/gluecell/pkg/config"
	"github.com/dispenso/gluecell/pkg/logger"
	"github.com/dispenso/gluecell/pkg/metrics"
)

// Hardcoded fallbacks used when neither segment settings nor global glue
// defaults are available.
const (
	fallbackMotorSpeed        = 10000.0
	fallbackRampSteps         = 1
	fallbackInitialRampSpeed  = 5000.0
	fallbackInitialRampPeriod = time.Second
	fallbackSpeedReverse      = 1000.0
	fallbackReversePeriod     = time.Second
	fallbackReverseRampSteps  = 1
)

// PumpController owns the pump/generator/fan sequencing. The ordering is a
// physical safety requirement: generator-on precedes motor-on by the settling
// delay, motor-off precedes generator-off by the settling delay. Generator
// shutdown stays with the callers so the pause path turns it off exactly once.
type PumpController struct {
	useSegmentSettings bool
	defaults           *config.GlueDefaults
	genToPumpDelay     time.Duration
	pumpToGenDelay     time.Duration
	log                *zap.SugaredLogger
}

// NewPumpController builds a controller. defaults may be nil, in which case
// the hardcoded fallbacks apply whenever segment settings are not in play.
func NewPumpController(useSegmentSettings bool, defaults *config.GlueDefaults) *PumpController {
	p := &PumpController{
		useSegmentSettings: useSegmentSettings,
		defaults:           defaults,
		genToPumpDelay:     500 * time.Millisecond,
		pumpToGenDelay:     500 * time.Millisecond,
		log:                logger.For(logger.ComponentPump),
	}
	if defaults != nil {
		if defaults.GeneratorToPumpDelay > 0 {
			p.genToPumpDelay = defaults.GeneratorToPumpDelay
		}
		if defaults.PumpToGeneratorDelay > 0 {
			p.pumpToGenDelay = defaults.PumpToGeneratorDelay
		}
	}
	return p
}

type startParams struct {
	speed           float64
	rampSteps       int
	initialSpeed    float64
	initialDuration time.Duration
	fanSpeed        float64
}

type stopParams struct {
	speedReverse    float64
	reverseDuration time.Duration
	rampSteps       int
}

func (p *PumpController) startParams(settings Settings) startParams {
	if p.useSegmentSettings && settings != nil {
		// Missing segment keys fall back to zero, not to the globals.
		return startParams{
			speed:           settings.Float(KeyMotorSpeed, 0),
			rampSteps:       int(settings.Float(KeyForwardRampSteps, 0)),
			initialSpeed:    settings.Float(KeyInitialRampSpeed, 0),
			initialDuration: time.Duration(settings.Float(KeyInitialRampSpeedDuration, 0) * float64(time.Second)),
			fanSpeed:        settings.Float(KeyFanSpeed, 0),
		}
	}
	if p.defaults != nil {
		return startParams{
			speed:           p.defaults.MotorSpeed,
			rampSteps:       p.defaults.ForwardRampSteps,
			initialSpeed:    p.defaults.InitialRampSpeed,
			initialDuration: p.defaults.InitialRampSpeedDuration,
			fanSpeed:        p.defaults.FanSpeed,
		}
	}
	return startParams{
		speed:           fallbackMotorSpeed,
		rampSteps:       fallbackRampSteps,
		initialSpeed:    fallbackInitialRampSpeed,
		initialDuration: fallbackInitialRampPeriod,
	}
}

func (p *PumpController) stopParams(settings Settings) stopParams {
	if p.useSegmentSettings && settings != nil {
		return stopParams{
			speedReverse:    settings.Float(KeySpeedReverse, 0),
			reverseDuration: time.Duration(settings.Float(KeyReverseDuration, 0) * float64(time.Second)),
			rampSteps:       int(settings.Float(KeyReverseRampSteps, 0)),
		}
	}
	if p.defaults != nil {
		return stopParams{
			speedReverse:    p.defaults.SpeedReverse,
			reverseDuration: p.defaults.ReverseDuration,
			rampSteps:       p.defaults.ReverseRampSteps,
		}
	}
	return stopParams{
		speedReverse:    fallbackSpeedReverse,
		reverseDuration: fallbackReversePeriod,
		rampSteps:       fallbackReverseRampSteps,
	}
}

// PumpOn energizes the dispensing chain: fan on, generator on, settling
// delay, motor on with the boost ramp. Returns the motor-on result; any
// panic from the hardware facade is contained and reported as false.
func (p *PumpController) PumpOn(c *ExecutionContext, motorAddress int, settings Settings) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Errorw("pump on failed", "motorAddress", motorAddress, "panic", r)
			metrics.ObservePumpStart(metrics.OutcomeFailure)
			ok = false
		}
	}()

	params := p.startParams(settings)

	c.Glue.FanOn(params.fanSpeed)
	c.Glue.GeneratorOn()
	c.SetGeneratorStarted(true)
	time.Sleep(p.genToPumpDelay)

	ok = c.Glue.MotorOn(motorAddress, params.speed, params.rampSteps, params.initialSpeed, params.initialDuration)
	if ok {
		metrics.ObservePumpStart(metrics.OutcomeSuccess)
		p.log.Debugw("pump on", "motorAddress", motorAddress, "speed", params.speed)
	} else {
		metrics.ObservePumpStart(metrics.OutcomeFailure)
		p.log.Warnw("motor refused to start", "motorAddress", motorAddress)
	}
	return ok
}

// PumpOff reverses the motor and waits the settling delay. It does not touch
// the generator; callers own the generator-off call. Panics are contained.
func (p *PumpController) PumpOff(c *ExecutionContext, motorAddress int, settings Settings) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Errorw("pump off failed", "motorAddress", motorAddress, "panic", r)
			metrics.ObservePumpStop(metrics.OutcomeFailure)
			ok = false
		}
	}()

	params := p.stopParams(settings)

	ok = c.Glue.MotorOff(motorAddress, params.speedReverse, params.reverseDuration, params.rampSteps)
	time.Sleep(p.pumpToGenDelay)

	if ok {
		metrics.ObservePumpStop(metrics.OutcomeSuccess)
	} else {
		metrics.ObservePumpStop(metrics.OutcomeFailure)
	}
	p.log.Debugw("pump off", "motorAddress", motorAddress, "speedReverse", params.speedReverse)
	return ok
}
