package audio

import (
	"context"
	"fmt"
	"math"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

var percentRe = regexp.MustCompile(`(\d+)\s*%`)

type sinkInput struct {
	ID      int
	Volume  int
	AppName string
}

// Ducker fades down every PulseAudio playback stream except our own
// while the mic is open, and restores them afterwards, so playback
// does not bleed into the capture window.
type Ducker struct {
	mu          sync.Mutex
	active      bool
	selfNames   []string    // application.name values left untouched
	originalVol map[int]int // id -> volume % before ducking
	minVolume   int
}

func NewDucker(selfNames []string, minVolume int) *Ducker {
	if minVolume < 0 {
		minVolume = 0
	}
	if minVolume > 150 {
		minVolume = 150
	}

	return &Ducker{
		selfNames:   append([]string(nil), selfNames...),
		originalVol: make(map[int]int),
		minVolume:   minVolume,
	}
}

// Duck fades all foreign streams to current*factor, clamped at the
// configured minimum. Calling it twice without Unduck is a no-op.
func (d *Ducker) Duck(ctx context.Context, factor float64, fade time.Duration) error {
	d.mu.Lock()
	if d.active {
		d.mu.Unlock()
		return nil
	}
	d.active = true
	d.mu.Unlock()

	streams, err := listSinkInputs(ctx)
	if err != nil {
		return err
	}

	var targets []fadeTarget
	d.mu.Lock()
	for _, s := range streams {
		if d.isSelf(s) {
			continue
		}
		d.originalVol[s.ID] = s.Volume
		to := int(math.Round(float64(s.Volume) * factor))
		if to < d.minVolume {
			to = d.minVolume
		}
		targets = append(targets, fadeTarget{id: s.ID, from: s.Volume, to: to})
	}
	d.mu.Unlock()

	return fadeSinkInputs(ctx, targets, fade)
}

// Unduck restores every stream Duck touched.
func (d *Ducker) Unduck(ctx context.Context, fade time.Duration) error {
	d.mu.Lock()
	if !d.active {
		d.mu.Unlock()
		return nil
	}
	d.active = false

	streams, err := listSinkInputs(ctx)
	if err != nil {
		d.originalVol = make(map[int]int)
		d.mu.Unlock()
		return err
	}

	current := make(map[int]int, len(streams))
	for _, s := range streams {
		current[s.ID] = s.Volume
	}

	var targets []fadeTarget
	for id, vol := range d.originalVol {
		from, ok := current[id]
		if !ok {
			// stream ended while ducked
			continue
		}
		targets = append(targets, fadeTarget{id: id, from: from, to: vol})
	}
	d.originalVol = make(map[int]int)
	d.mu.Unlock()

	return fadeSinkInputs(ctx, targets, fade)
}

func (d *Ducker) isSelf(s sinkInput) bool {
	for _, name := range d.selfNames {
		if strings.EqualFold(s.AppName, name) {
			return true
		}
	}
	return false
}

type fadeTarget struct {
	id   int
	from int
	to   int
}

func fadeSinkInputs(ctx context.Context, targets []fadeTarget, duration time.Duration) error {
	if len(targets) == 0 {
		return nil
	}

	const steps = 8
	if duration <= 0 {
		for _, t := range targets {
			if err := setSinkInputVolume(ctx, t.id, t.to); err != nil {
				return err
			}
		}
		return nil
	}

	tick := duration / steps
	for step := 1; step <= steps; step++ {
		for _, t := range targets {
			v := t.from + (t.to-t.from)*step/steps
			if err := setSinkInputVolume(ctx, t.id, v); err != nil {
				return err
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(tick):
		}
	}
	return nil
}

func listSinkInputs(ctx context.Context) ([]sinkInput, error) {
	out, err := exec.CommandContext(ctx, "pactl", "list", "sink-inputs").Output()
	if err != nil {
		return nil, fmt.Errorf("pactl list: %w", err)
	}

	var (
		streams []sinkInput
		cur     *sinkInput
	)
	for _, line := range strings.Split(string(out), "\n") {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "Sink Input #") {
			if cur != nil {
				streams = append(streams, *cur)
			}
			id, err := strconv.Atoi(strings.TrimPrefix(trimmed, "Sink Input #"))
			if err != nil {
				cur = nil
				continue
			}
			cur = &sinkInput{ID: id, Volume: -1}
			continue
		}
		if cur == nil {
			continue
		}

		if strings.HasPrefix(trimmed, "Volume:") && cur.Volume < 0 {
			if m := percentRe.FindStringSubmatch(trimmed); m != nil {
				cur.Volume, _ = strconv.Atoi(m[1])
			}
		}
		if strings.HasPrefix(trimmed, "application.name") {
			if _, val, ok := strings.Cut(trimmed, "="); ok {
				cur.AppName = strings.Trim(strings.TrimSpace(val), `"`)
			}
		}
	}
	if cur != nil {
		streams = append(streams, *cur)
	}

	return streams, nil
}

func setSinkInputVolume(ctx context.Context, id, percent int) error {
	if percent < 0 {
		percent = 0
	}
	cmd := exec.CommandContext(ctx, "pactl",
		"set-sink-input-volume", strconv.Itoa(id), fmt.Sprintf("%d%%", percent))
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("pactl set volume %d: %w", id, err)
	}
	return nil
}
