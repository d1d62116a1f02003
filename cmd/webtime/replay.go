package main

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/BYTE-6D65/webtime/pkg/host"
	"github.com/BYTE-6D65/webtime/pkg/timestamp"
)

// parseReplay parses "start,delta,delta,..." timer readings in milliseconds.
func parseReplay(spec string) (float64, []float64, error) {
	fields := strings.Split(spec, ",")
	values := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return 0, nil, fmt.Errorf("invalid replay reading %q: %w", f, err)
		}
		if timestamp.Classify(v) == timestamp.RegimeInvalid {
			return 0, nil, fmt.Errorf("replay reading %s out of range", f)
		}
		values = append(values, v)
	}
	return values[0], values[1:], nil
}

// newReplayHost builds a synthetic host that replays the readings in spec.
// The wall clock starts at the current time and follows the replayed timer.
func newReplayHost(spec string, speed float64) (*host.Synthetic, error) {
	start, deltas, err := parseReplay(spec)
	if err != nil {
		return nil, err
	}
	if speed < 0 || math.IsNaN(speed) || math.IsInf(speed, 0) {
		return nil, fmt.Errorf("invalid replay speed %v", speed)
	}

	now := float64(time.Now().UnixMilli())
	h := host.NewSynthetic()
	h.SetOrigin(now - start)
	h.Load(start, deltas)
	h.SetWall(now)
	h.SetSpeed(speed)
	h.SetNoSleep(speed == 0)
	return h, nil
}

type replayStepMsg struct{}

// replayStep advances the replay by one delta, sleeping for it in real
// time unless the replay runs unthrottled.
func replayStep(r host.Replayer) tea.Cmd {
	return func() tea.Msg {
		r.Advance()
		return replayStepMsg{}
	}
}
