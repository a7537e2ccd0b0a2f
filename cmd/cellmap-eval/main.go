// Command-line interface to the CellMap segmentation challenge evaluation
// utilities: score a zipped submission, validate its structure, or archive
// a packaged store.

package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/janelia-cellmap/cellmap-eval/cmeval"
	"github.com/janelia-cellmap/cellmap-eval/scoring"
	"github.com/janelia-cellmap/cellmap-eval/submission"
)

var (
	// Display usage if true.
	showHelp = flag.Bool("help", false, "")

	// Run in verbose mode if true.
	runVerbose = flag.Bool("verbose", false, "")

	// Path to a TOML configuration file.
	configFile = flag.String("config", "", "")
)

const helpMessage = `
cellmap-eval evaluates segmentation challenge submissions against ground truth

Usage: cellmap-eval [options] <command>

      -config     =string   Path to TOML configuration file.
      -verbose    (flag)    Run in verbose mode.
  -h, -help       (flag)    Show help message

Commands:

	about
	help
	validate <submission.zip | store.zarr>
	zip      <store.zarr>
	score    <submission.zip> [truth=/path/to/truth.zarr] [save=/path/to/scores.json]

The ground truth store defaults to %q, overridable in the config file
[scoring] section or by the truth= setting.  When no save= setting is
given, scores are printed to stdout.
`

var usage = func() {
	fmt.Printf(helpMessage, scoring.DefaultGroundTruth)
}

func main() {
	flag.BoolVar(showHelp, "h", false, "Show help message")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() >= 1 && strings.ToLower(flag.Args()[0]) == "help" {
		*showHelp = true
	}
	if *showHelp || flag.NArg() == 0 {
		flag.Usage()
		os.Exit(0)
	}

	if *runVerbose {
		cmeval.Verbose = true
		cmeval.SetLogMode(cmeval.DebugMode)
	}
	cmeval.NumCPU = runtime.NumCPU()

	config := scoring.DefaultConfig()
	if *configFile != "" {
		var err error
		config, err = scoring.LoadConfig(*configFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
		config.Logging.SetLogger()
	}

	command := cmeval.Command(flag.Args())
	if err := DoCommand(command, config); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

// DoCommand serves as a switchboard for commands.
func DoCommand(cmd cmeval.Command, config *scoring.Config) error {
	switch cmd.Name() {
	case "about":
		fmt.Printf("cellmap-eval version %s\n", cmeval.Version)
	case "validate":
		return DoValidate(cmd)
	case "zip":
		return DoZip(cmd)
	case "score":
		return DoScore(cmd, config)
	default:
		return fmt.Errorf("unknown command: %q", cmd)
	}
	return nil
}

// DoValidate performs the "validate" command, checking submission structure.
func DoValidate(cmd cmeval.Command) error {
	path := cmd.Argument(1)
	if path == "" {
		return fmt.Errorf("validate command must be followed by a submission zip or store path")
	}
	storePath := path
	if strings.HasSuffix(path, ".zip") {
		extractPath, err := submission.Unzip(path)
		if err != nil {
			return err
		}
		if storePath, err = submission.FindStore(extractPath); err != nil {
			return err
		}
	}
	if err := submission.Validate(storePath); err != nil {
		return err
	}
	fmt.Printf("Submission %s is valid.\n", path)
	return nil
}

// DoZip performs the "zip" command, archiving a packaged store.
func DoZip(cmd cmeval.Command) error {
	storePath := cmd.Argument(1)
	if storePath == "" {
		return fmt.Errorf("zip command must be followed by the path to a packaged store")
	}
	zipPath, err := submission.Zip(storePath)
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", zipPath)
	return nil
}

// DoScore performs the "score" command, evaluating a zipped submission
// against the ground-truth store.
func DoScore(cmd cmeval.Command, config *scoring.Config) error {
	zipPath := cmd.Argument(1)
	if zipPath == "" {
		return fmt.Errorf("score command must be followed by the path to a submission zip")
	}
	if truth, found := cmd.Parameter("truth"); found {
		config.Scoring.GroundTruth = truth
	}

	scores, err := scoring.ScoreSubmission(zipPath, config)
	if err != nil {
		return err
	}
	if savePath, found := cmd.Parameter("save"); found {
		return scoring.WriteReport(scores, savePath)
	}
	return printScores(scores)
}

func printScores(scores *scoring.SubmissionScores) error {
	for volume, volumeScores := range scores.Volumes {
		fmt.Printf("Volume %q: mean dice %.4f, mean jaccard %.4f\n",
			volume, volumeScores.MeanDice, volumeScores.MeanJaccard)
		for label, s := range volumeScores.Labels {
			fmt.Printf("  %-20s dice %.4f  jaccard %.4f  precision %.4f  recall %.4f\n",
				label, s.Dice, s.Jaccard, s.Precision, s.Recall)
		}
		for label, reason := range volumeScores.Failed {
			fmt.Printf("  %-20s FAILED: %s\n", label, reason)
		}
	}
	if len(scores.Skipped) > 0 {
		fmt.Printf("Skipped volumes with no ground truth: %s\n", strings.Join(scores.Skipped, ", "))
	}
	fmt.Printf("Overall: mean dice %.4f, mean jaccard %.4f\n", scores.MeanDice, scores.MeanJaccard)
	return nil
}
