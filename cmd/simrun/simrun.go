package main

import (
	"fmt"
	"math/rand"
	"os"
	"strings"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/logs"
	"github.com/stephancmorris/macOS-rl-viritual-camera/train/envsim"
	"github.com/stephancmorris/macOS-rl-viritual-camera/train/session"
	"gonum.org/v1/gonum/stat"
)

func check(err error) {
	if err != nil {
		panic(err)
	}
}

// policyFunc maps an observation to a velocity command.
type policyFunc func(obs envsim.Observation) envsim.Action

// zeroPolicy never moves the crop. Its episode return is the baseline
// that a trained policy must beat.
func zeroPolicy(obs envsim.Observation) envsim.Action {
	return envsim.Action{}
}

// trackPolicy is a proportional controller on the observation: pan toward
// the speaker, tilt to put the head near the upper third of the crop.
// Deliberately crude, it exists to sanity-check that the reward prefers
// tracking over standing still.
func trackPolicy(obs envsim.Observation) envsim.Action {
	if obs[0] < 0.5 {
		return envsim.Action{}
	}
	cropCenterX := obs[8] + obs[10]/2
	pan := (obs[1] - cropCenterX) * 20

	// obs[15] is the head's relative height within the crop
	tilt := (obs[15] - 0.667) * 10

	return envsim.Action{pan, tilt, 0}.Clamped()
}

func main() {
	parser := argparse.NewParser("simrun", "Run scripted policies through the framing simulator and report episode returns")
	data := parser.StringList("d", "data", &argparse.Options{Help: "Directory containing session_* subdirectories (repeatable)", Required: true})
	episodes := parser.Int("n", "episodes", &argparse.Options{Help: "Number of episodes to run", Required: false, Default: 20})
	seed := parser.Int("s", "seed", &argparse.Options{Help: "Random seed", Required: false, Default: 0})
	policyName := parser.Selector("p", "policy", []string{"zero", "track"}, &argparse.Options{Help: "Policy to run", Required: false, Default: "zero"})
	minFrames := parser.Int("", "min-frames", &argparse.Options{Help: "Skip sessions shorter than this", Required: false, Default: envsim.DefaultMinEpisodeLen})
	minLen := parser.Int("", "min-episode-len", &argparse.Options{Help: "Minimum episode length in frames", Required: false, Default: envsim.DefaultMinEpisodeLen})
	maxLen := parser.Int("", "max-episode-len", &argparse.Options{Help: "Maximum episode length in frames", Required: false, Default: envsim.DefaultMaxEpisodeLen})
	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	logger, err := logs.NewLog()
	check(err)

	sessions := session.Scan(logger, *data, *minFrames)
	if len(sessions) == 0 {
		logger.Errorf("No sessions found under %v", strings.Join(*data, ", "))
		os.Exit(1)
	}

	opts := envsim.DefaultOptions()
	opts.MinEpisodeLen = *minLen
	opts.MaxEpisodeLen = *maxLen
	engine, err := envsim.NewEngine(logger, sessions, opts)
	check(err)

	var policy policyFunc
	switch *policyName {
	case "track":
		policy = trackPolicy
	default:
		policy = zeroPolicy
	}

	rng := rand.New(rand.NewSource(int64(*seed)))
	returns := []float64{}
	perStep := []float64{}
	nSteps := 0

	for ep := 0; ep < *episodes; ep++ {
		obs, info := engine.Reset(rng)
		episodeReturn := 0.0
		for {
			o, rew, _, truncated, _ := engine.Step(policy(obs))
			obs = o
			episodeReturn += rew
			perStep = append(perStep, rew)
			nSteps++
			if truncated {
				break
			}
		}
		returns = append(returns, episodeReturn)
		logger.Debugf("Episode %v (%v, %v frames): return %.3f", ep, info.SessionID, info.EpisodeLength, episodeReturn)
	}

	meanRet, stdRet := stat.MeanStdDev(returns, nil)
	meanStep, stdStep := stat.MeanStdDev(perStep, nil)
	minStep, maxStep := perStep[0], perStep[0]
	for _, r := range perStep {
		if r < minStep {
			minStep = r
		}
		if r > maxStep {
			maxStep = r
		}
	}

	logger.Infof("Policy %v: %v episodes, %v steps over %v sessions", *policyName, *episodes, nSteps, engine.NumSessions())
	logger.Infof("Episode return: mean %.3f, stddev %.3f", meanRet, stdRet)
	logger.Infof("Per-step reward: mean %.4f, stddev %.4f, min %.4f, max %.4f", meanStep, stdStep, minStep, maxStep)
}
