package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"github.com/varenhold/scriven/internal/registry"
	"github.com/varenhold/scriven/internal/sim"
)

func simulateCmd() *cli.Command {
	return &cli.Command{
		Name:  "simulate",
		Usage: "Synthesize or replay a composition session and print its profile",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "text",
				Aliases: []string{"t"},
				Usage:   "Input text to analyze (reads stdin when omitted)",
			},
			&cli.StringFlag{
				Name:    "mode",
				Aliases: []string{"m"},
				Usage:   "Simulation mode: typed, paste, mixed",
				Value:   "typed",
			},
			&cli.IntFlag{
				Name:  "wpm",
				Usage: "Typing speed in words per minute (typed and mixed modes)",
				Value: 60,
			},
			&cli.StringFlag{
				Name:  "replay",
				Usage: "Replay an exported event log (or snapshot) from a file",
			},
		},
		Action: runSimulate,
	}
}

func runSimulate(ctx context.Context, cmd *cli.Command) error {
	reg := registry.New()

	if path := cmd.String("replay"); path != "" {
		return replayFile(reg, path, cmd.String("text"))
	}

	text, err := inputText(cmd)
	if err != nil {
		return err
	}

	mode, err := sim.ParseMode(cmd.String("mode"))
	if err != nil {
		return err
	}

	wpm := cmd.Int("wpm")
	if wpm < 0 {
		return fmt.Errorf("wpm must not be negative, got %d", wpm)
	}

	id := reg.Start()
	for _, e := range sim.Synthesize(text, mode, uint64(wpm)) {
		if err := reg.Push(id, e); err != nil {
			return err
		}
	}

	return printProfile(reg, id, text)
}

// inputText returns the --text flag, falling back to stdin. Blank input is
// an error.
func inputText(cmd *cli.Command) (string, error) {
	text := cmd.String("text")
	if text == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		text = string(data)
	}
	if strings.TrimSpace(text) == "" {
		return "", errors.New("no input text provided")
	}
	return text, nil
}

// replayPayload covers both accepted replay file shapes: a bare exported
// event array, or a wrapper carrying the final text alongside the events.
type replayPayload struct {
	Text   string          `json:"text"`
	Events json.RawMessage `json:"events"`
}

// replayFile imports an event log from disk into a fresh session and prints
// the profile finalized against the recorded (or flag-supplied) text.
func replayFile(reg *registry.Registry, path, flagText string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read replay file: %w", err)
	}

	text := flagText
	eventsJSON := data
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		var wrapper replayPayload
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return fmt.Errorf("decode replay file: %w", err)
		}
		if len(wrapper.Events) == 0 {
			return errors.New("replay file has no events")
		}
		eventsJSON = wrapper.Events
		if text == "" {
			text = wrapper.Text
		}
	}

	id, err := reg.ImportEvents(eventsJSON)
	if err != nil {
		return err
	}
	return printProfile(reg, id, text)
}

func printProfile(reg *registry.Registry, id uuid.UUID, text string) error {
	p, err := reg.Finalize(id, text)
	if err != nil {
		return err
	}
	out, err := p.Render()
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
