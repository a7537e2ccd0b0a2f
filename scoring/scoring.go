/*
	Package scoring compares a packaged submission against a ground-truth
	Zarr-2 store.  Volume and label names are intersected between the two
	sides, each shared label is scored with voxel-overlap metrics, and the
	per-volume and overall aggregates are reported.

	The pipeline mirrors the submission layout:

		submission.zip -> submission.zarr/<volume>/<label>

	scored against <ground truth store>/<volume>/<label>.
*/
package scoring

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/janelia-cellmap/cellmap-eval/cmeval"
	"github.com/janelia-cellmap/cellmap-eval/submission"
	"github.com/janelia-cellmap/cellmap-eval/zarr"
)

// VolumeScores holds the per-label scores of one test volume.
type VolumeScores struct {
	Labels map[string]LabelScore `json:"labels"`

	// Skipped lists predicted labels with no ground-truth counterpart.
	Skipped []string `json:"skipped,omitempty"`

	// Failed maps labels that could not be scored to the reason.
	Failed map[string]string `json:"failed,omitempty"`

	MeanDice    float64 `json:"mean_dice"`
	MeanJaccard float64 `json:"mean_jaccard"`
}

// SubmissionScores holds the scores of a whole submission.
type SubmissionScores struct {
	Volumes map[string]*VolumeScores `json:"volumes"`

	// Skipped lists predicted volumes with no ground-truth counterpart.
	Skipped []string `json:"skipped,omitempty"`

	MeanDice    float64 `json:"mean_dice"`
	MeanJaccard float64 `json:"mean_jaccard"`
}

// ScoreLabel scores a single predicted label volume against its
// ground-truth counterpart.  The volume and label names are taken from
// the last two elements of the prediction path.  The two label volumes
// must have the same shape.
func ScoreLabel(predLabelPath, truthPath string) (LabelScore, error) {
	labelName := filepath.Base(predLabelPath)
	volumeName := filepath.Base(filepath.Dir(predLabelPath))

	pred, err := zarr.OpenArray(predLabelPath)
	if err != nil {
		return LabelScore{}, err
	}
	truth, err := zarr.OpenArray(filepath.Join(truthPath, volumeName, labelName))
	if err != nil {
		return LabelScore{}, err
	}
	if !shapeEquals(pred.Shape(), truth.Shape()) {
		return LabelScore{}, fmt.Errorf("predicted shape %v differs from ground truth shape %v for label %s/%s",
			pred.Shape(), truth.Shape(), volumeName, labelName)
	}

	predData, err := pred.ReadUint8()
	if err != nil {
		return LabelScore{}, err
	}
	truthData, err := truth.ReadUint8()
	if err != nil {
		return LabelScore{}, err
	}
	return scoreOverlap(predData, truthData), nil
}

// ScoreVolume scores every label of a predicted volume that also exists
// in the ground truth.  Labels that fail to score, e.g. from a shape
// mismatch, are recorded rather than aborting the volume.
func ScoreVolume(predVolumePath, truthPath string) (*VolumeScores, error) {
	volumeName := filepath.Base(predVolumePath)
	predVolume, err := zarr.OpenGroup(predVolumePath)
	if err != nil {
		return nil, err
	}
	predLabels, err := predVolume.Arrays()
	if err != nil {
		return nil, err
	}
	truthVolume, err := zarr.OpenGroup(filepath.Join(truthPath, volumeName))
	if err != nil {
		return nil, fmt.Errorf("no ground truth for volume %q: %v", volumeName, err)
	}
	truthLabels, err := truthVolume.Arrays()
	if err != nil {
		return nil, err
	}

	shared, skipped := intersect(predLabels, truthLabels)
	scores := &VolumeScores{
		Labels:  make(map[string]LabelScore, len(shared)),
		Skipped: skipped,
	}
	for _, label := range shared {
		labelScore, err := ScoreLabel(filepath.Join(predVolumePath, label), truthPath)
		if err != nil {
			cmeval.Errorf("Volume %q label %q: %v\n", volumeName, label, err)
			if scores.Failed == nil {
				scores.Failed = make(map[string]string)
			}
			scores.Failed[label] = err.Error()
			continue
		}
		scores.Labels[label] = labelScore
	}
	scores.MeanDice, scores.MeanJaccard = meanScores(scores.Labels)
	return scores, nil
}

// ScoreSubmission scores a zipped submission against the configured
// ground-truth store.  Volumes present on both sides are scored
// concurrently.
func ScoreSubmission(zipPath string, config *Config) (*SubmissionScores, error) {
	if config == nil {
		config = DefaultConfig()
	}
	timelog := cmeval.NewTimeLog()

	extractPath, err := submission.Unzip(zipPath)
	if err != nil {
		return nil, err
	}
	storePath, err := submission.FindStore(extractPath)
	if err != nil {
		return nil, err
	}
	predRoot, err := zarr.OpenGroup(storePath)
	if err != nil {
		return nil, err
	}
	predVolumes, err := predRoot.Groups()
	if err != nil {
		return nil, err
	}
	truthRoot, err := zarr.OpenGroup(config.Scoring.GroundTruth)
	if err != nil {
		return nil, fmt.Errorf("can't open ground truth store: %v", err)
	}
	truthVolumes, err := truthRoot.Groups()
	if err != nil {
		return nil, err
	}

	shared, skipped := intersect(predVolumes, truthVolumes)
	scores := &SubmissionScores{
		Volumes: make(map[string]*VolumeScores, len(shared)),
		Skipped: skipped,
	}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(config.workers())
	for _, volume := range shared {
		volume := volume
		g.Go(func() error {
			volumeScores, err := ScoreVolume(filepath.Join(storePath, volume), config.Scoring.GroundTruth)
			if err != nil {
				return err
			}
			mu.Lock()
			scores.Volumes[volume] = volumeScores
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	scores.MeanDice, scores.MeanJaccard = meanVolumeScores(scores.Volumes)
	timelog.Infof("Scored submission %s: %d volumes, mean dice %.4f", zipPath, len(scores.Volumes), scores.MeanDice)
	return scores, nil
}

// WriteReport saves submission scores as an indented JSON file.
func WriteReport(scores *SubmissionScores, savePath string) error {
	if err := cmeval.WriteJSONFile(savePath, scores); err != nil {
		return err
	}
	if info, err := os.Stat(savePath); err == nil {
		cmeval.Infof("Wrote score report to %s (%s)\n", savePath, humanize.Bytes(uint64(info.Size())))
	}
	return nil
}

// intersect returns the sorted names present in both slices plus the
// sorted names present only in the first.
func intersect(pred, truth []string) (shared, predOnly []string) {
	truthSet := make(map[string]struct{}, len(truth))
	for _, name := range truth {
		truthSet[name] = struct{}{}
	}
	for _, name := range pred {
		if _, found := truthSet[name]; found {
			shared = append(shared, name)
		} else {
			predOnly = append(predOnly, name)
		}
	}
	sort.Strings(shared)
	sort.Strings(predOnly)
	return
}

func meanScores(labels map[string]LabelScore) (meanDice, meanJaccard float64) {
	if len(labels) == 0 {
		return 0, 0
	}
	dice := make([]float64, 0, len(labels))
	jaccard := make([]float64, 0, len(labels))
	for _, s := range labels {
		dice = append(dice, s.Dice)
		jaccard = append(jaccard, s.Jaccard)
	}
	return stat.Mean(dice, nil), stat.Mean(jaccard, nil)
}

func meanVolumeScores(volumes map[string]*VolumeScores) (meanDice, meanJaccard float64) {
	if len(volumes) == 0 {
		return 0, 0
	}
	dice := make([]float64, 0, len(volumes))
	jaccard := make([]float64, 0, len(volumes))
	for _, s := range volumes {
		dice = append(dice, s.MeanDice)
		jaccard = append(jaccard, s.MeanJaccard)
	}
	return stat.Mean(dice, nil), stat.Mean(jaccard, nil)
}

func shapeEquals(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
