// kaiku-track is a terminal front end for the kaiku engine: ten tracks, a
// shared cursor, microphone recording and scrubbing, controlled with simple
// line commands and optionally a MIDI transport.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/aleksima/kaiku/engine"
	"github.com/aleksima/kaiku/gomidi"
	"github.com/aleksima/kaiku/oto"
	"github.com/aleksima/kaiku/portaudio"
	"github.com/aleksima/kaiku/wav"
	"github.com/sirupsen/logrus"
)

var (
	configFile   = flag.String("config", "", "read engine configuration from `file`")
	midiInput    = flag.String("midi-input", "", "connect MIDI transport to matching device name prefix")
	midiBaseNote = flag.Uint("midi-note", 36, "first MIDI note mapped to track 0 record toggle")
	verbose      = flag.Bool("verbose", false, "debug logging")
)

func main() {
	flag.Parse()
	log := logrus.New()
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	cfg := engine.DefaultConfig()
	if *configFile != "" {
		f, err := os.Open(*configFile)
		if err != nil {
			log.Fatal(err)
		}
		cfg, err = engine.ReadConfig(f)
		f.Close()
		if err != nil {
			log.Fatal(err)
		}
	}

	broker := engine.NewBroker()
	dev, err := oto.NewDevice(broker, cfg.SampleRate)
	if err != nil {
		log.Fatal(err)
	}
	defer dev.Close()
	capturer, err := portaudio.NewCapturer(cfg.SampleRate)
	if err != nil {
		log.Fatal(err)
	}
	defer capturer.Close()

	e := engine.NewEngine(broker, dev, capturer, wav.Codec{}, cfg, log)

	if *midiInput != "" {
		transport, err := gomidi.NewTransport(broker, *midiInput, uint8(*midiBaseNote))
		if err != nil {
			log.WithError(err).Warn("MIDI transport unavailable")
		} else {
			log.Infof("MIDI transport: %s", transport)
			defer transport.Close()
		}
	}

	go render(broker)

	commands := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			commands <- scanner.Text()
		}
		close(commands)
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	fmt.Println("commands: play | stop | seek T | scrub T | endscrub | rec N | gain N G | move N T | quit")
	ticker := time.NewTicker(time.Duration(float64(time.Second) / cfg.FrameRate))
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			e.Frame()
		case <-sigs:
			e.Stop()
			return
		case line, ok := <-commands:
			if !ok {
				e.Stop()
				return
			}
			if quit := command(e, log, line); quit {
				e.Stop()
				return
			}
		}
	}
}

// command dispatches one input line on the engine timeline.
func command(e *engine.Engine, log logrus.FieldLogger, line string) (quit bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	arg := func(i int) float64 {
		if i >= len(fields) {
			return 0
		}
		v, _ := strconv.ParseFloat(fields[i], 64)
		return v
	}
	switch fields[0] {
	case "play":
		e.Play()
	case "stop":
		e.Stop()
	case "seek":
		e.Seek(arg(1))
	case "scrub":
		e.ScrubTo(arg(1))
	case "endscrub":
		e.EndScrub()
	case "rec":
		track := int(arg(1))
		if e.Registry().Capturing(track) {
			e.RecordStop(track)
		} else if err := e.RecordStart(track); err != nil {
			log.WithError(err).Warn("record")
		}
	case "gain":
		e.Registry().SetGain(int(arg(1)), arg(2))
	case "move":
		if err := e.Registry().SetStart(int(arg(1)), arg(2)); err != nil {
			log.WithError(err).Warn("move")
		}
	case "quit":
		return true
	default:
		log.Warnf("unknown command %q", fields[0])
	}
	return false
}

// render is the renderer collaborator: it consumes cursor state and alerts
// and draws a one-line status display.
func render(broker *engine.Broker) {
	status := time.NewTicker(250 * time.Millisecond)
	defer status.Stop()
	var last engine.MsgToRenderer
	for {
		select {
		case msg := <-broker.ToRenderer:
			last = msg
			switch data := msg.Data.(type) {
			case engine.Alert:
				fmt.Printf("\n[%s] %s\n", data.Name, data.Message)
			case engine.ClipCommittedMsg:
				fmt.Printf("\ntrack %d: clip committed\n", data.Track)
			}
			if msg.PageChanged {
				fmt.Printf("\n-- page %d --\n", msg.Page)
			}
		case <-status.C:
			state := "stopped"
			if last.Playing {
				state = "playing"
			}
			fmt.Printf("\r%8.2fs  page %d  %s ", last.Time, last.Page, state)
		}
	}
}
