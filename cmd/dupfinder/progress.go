package main

import (
	"os"
	"strings"

	"dupfinder/scanner"

	"github.com/schollz/progressbar/v3"
)

// progressView shows one bar per search stage. Update is only called from
// the engine's progress goroutine.
type progressView struct {
	enabled bool
	stage   scanner.Stage
	bar     *progressbar.ProgressBar
}

func newProgressView(enabled bool) *progressView {
	return &progressView{enabled: enabled, stage: -1}
}

func (v *progressView) Update(p scanner.Progress) {
	if !v.enabled {
		return
	}
	if v.bar == nil || p.Stage != v.stage {
		v.finishBar()
		v.stage = p.Stage
		v.bar = newStageBar(p)
	}
	_ = v.bar.Set(p.Current)
}

func (v *progressView) Finish() {
	if v.enabled {
		v.finishBar()
	}
}

func (v *progressView) finishBar() {
	if v.bar != nil {
		_ = v.bar.Finish()
		v.bar = nil
	}
}

func newStageBar(p scanner.Progress) *progressbar.ProgressBar {
	description := stageDescription(p.Stage)
	if p.Total <= 0 {
		return progressbar.NewOptions(-1,
			progressbar.OptionSetDescription(description),
			progressbar.OptionShowCount(),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionFullWidth(),
		)
	}
	return progressbar.NewOptions(p.Total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionFullWidth(),
	)
}

func stageDescription(stage scanner.Stage) string {
	switch stage {
	case scanner.StageCollecting:
		return "Collecting files"
	case scanner.StagePrehash:
		return "Hashing file heads"
	case scanner.StageFullHash:
		return "Hashing candidates"
	default:
		return stage.String()
	}
}

func progressVisible() bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv("DUPFINDER_DISABLE_PROGRESS")))
	return value != "1" && value != "true" && value != "yes" && value != "on"
}
