package main

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/logs"
	"github.com/stephancmorris/macOS-rl-viritual-camera/pkg/records"
	"github.com/stephancmorris/macOS-rl-viritual-camera/train/canvas"
	"github.com/stephancmorris/macOS-rl-viritual-camera/train/detect"
	"github.com/stephancmorris/macOS-rl-viritual-camera/train/session"
	"github.com/stephancmorris/macOS-rl-viritual-camera/train/sessiondb"
)

func check(err error) {
	if err != nil {
		panic(err)
	}
}

func main() {
	parser := argparse.NewParser("extract", "Convert per-frame person detections into a training session")
	detections := parser.String("i", "detections", &argparse.Options{Help: "Input detections file (JSONL, one detection per frame)", Required: true})
	output := parser.String("o", "output", &argparse.Options{Help: "Output directory for the session", Required: true})
	title := parser.String("t", "title", &argparse.Options{Help: "Video title recorded in session metadata", Required: false, Default: ""})
	fps := parser.Int("", "fps", &argparse.Options{Help: "Frame rate of the source video", Required: false, Default: session.DefaultFPS})
	width := parser.Int("", "width", &argparse.Options{Help: "Source video width in pixels", Required: false, Default: 1920})
	height := parser.Int("", "height", &argparse.Options{Help: "Source video height in pixels", Required: false, Default: 1080})
	zoomMin := parser.Float("", "zoom-min", &argparse.Options{Help: "Minimum embedding zoom", Required: false, Default: canvas.DefaultOptions().ZoomMin})
	zoomMax := parser.Float("", "zoom-max", &argparse.Options{Help: "Maximum embedding zoom", Required: false, Default: canvas.DefaultOptions().ZoomMax})
	confidence := parser.Float("c", "confidence", &argparse.Options{Help: "Detector confidence threshold recorded in metadata", Required: false, Default: 0.5})
	seed := parser.Int("s", "seed", &argparse.Options{Help: "Random seed for canvas placement", Required: false, Default: 0})
	maxFrames := parser.Int("", "max-frames", &argparse.Options{Help: "Stop after this many frames (0 = all)", Required: false, Default: 0})
	catalog := parser.String("", "catalog", &argparse.Options{Help: "SQLite session catalog to register the session in (optional)", Required: false, Default: ""})
	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	logger, err := logs.NewLog()
	check(err)

	dets, err := detect.ReadFile(logger, *detections)
	check(err)
	if *maxFrames > 0 && len(dets) > *maxFrames {
		dets = dets[:*maxFrames]
	}
	if len(dets) == 0 {
		logger.Errorf("No detections in %v", *detections)
		os.Exit(1)
	}

	opts := canvas.DefaultOptions()
	opts.ZoomMin = *zoomMin
	opts.ZoomMax = *zoomMax

	rng := rand.New(rand.NewSource(int64(*seed)))

	writer, err := session.NewWriter(logger, *output, session.WriterConfig{
		VideoTitle:          *title,
		FPS:                 *fps,
		Width:               *width,
		Height:              *height,
		ConfidenceThreshold: *confidence,
		HighAccuracy:        true,
	})
	check(err)

	var state *canvas.State
	nWithPerson := 0
	for i := range dets {
		emb, err := canvas.Embed(&dets[i], state, opts, rng)
		if err != nil {
			writer.Close()
			check(err)
		}
		state = emb.State
		if dets[i].HasPerson {
			nWithPerson++
		}
		rec := records.FrameRecord{
			T:           float64(i) / float64(*fps),
			FrameIdx:    i,
			Speaker:     emb.Speaker,
			Keypoints:   emb.Keypoints,
			CurrentCrop: emb.Crop,
			IdealCrop:   emb.IdealCrop,
		}
		if err := writer.WriteFrame(&rec); err != nil {
			writer.Close()
			check(err)
		}
	}
	check(writer.Finalize(len(dets), float64(len(dets))/float64(*fps)))

	logger.Infof("Wrote session %v: %v frames (%v with a person) to %v", writer.SessionID, len(dets), nWithPerson, writer.Dir)

	if *catalog != "" {
		db, err := sessiondb.Open(logger, *catalog)
		check(err)
		check(db.Upsert(&sessiondb.Session{
			SessionID:       writer.SessionID,
			Dir:             writer.Dir,
			FPS:             *fps,
			FrameCount:      len(dets),
			DurationSeconds: float64(len(dets)) / float64(*fps),
			Source:          session.SourceYouTube,
			CreatedAt:       dbh.MakeIntTime(time.Now()),
		}))
		logger.Infof("Registered session in catalog %v", *catalog)
	}
}
