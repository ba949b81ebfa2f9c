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

import "strconv"

// Setting keys shared between the segment editor and the process. The keys
// match the human-readable labels of the settings dialog, which is also how
// they arrive in the per-segment settings of a trajectory.
const (
	KeyVelocity                 = "Velocity"
	KeyAcceleration             = "Acceleration"
	KeyMotorSpeed               = "Pump Speed"
	KeyForwardRampSteps         = "Forward Ramp Steps"
	KeyInitialRampSpeed         = "Initial Ramp Speed"
	KeyInitialRampSpeedDuration = "Initial Ramp Speed Duration"
	KeySpeedReverse             = "Pump Speed Reverse"
	KeyReverseDuration          = "Pump Reverse Time"
	KeyReverseRampSteps         = "Reverse Ramp Steps"
	KeyFanSpeed                 = "Fan Speed"
	KeyGlueType                 = "Glue Type"
	KeyReachStartThreshold      = "Reach Start Threshold"
	KeyGlueSpeedCoefficient     = "Glue Speed Coefficient"
)

// Settings is the effective settings map for a path segment. Values arrive
// as numbers or numeric strings depending on where the segment was edited.
type Settings map[string]any

// Float returns the numeric value for key or fallback when the key is
// missing or not convertible.
func (s Settings) Float(key string, fallback float64) float64 {
	v, ok := s[key]
	if !ok {
		return fallback
	}
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return f
		}
	}
	return fallback
}

// String returns the string value for key.
func (s Settings) String(key string) (string, bool) {
	v, ok := s[key]
	if !ok {
		return "", false
	}
	str, ok := v.(string)
	return str, ok
}

// MergeSettings overlays segment values over global defaults. Neither input
// is mutated.
func MergeSettings(global, segment Settings) Settings {
	merged := make(Settings, len(global)+len(segment))
	for k, v := range global {
		merged[k] = v
	}
	for k, v := range segment {
		merged[k] = v
	}
	return merged
}
