package pipeline

import (
	"errors"
	"strings"
	"testing"

	"go-bar-race/internal/config"
	"go-bar-race/internal/model"
)

func defaults() config.RenderConfig {
	return config.RenderConfig{
		TopN: 10, Format: "gif", FPS: 10, PeriodMillis: 1000,
		Width: 1280, Height: 720, DPI: 100,
		Colormap: "viridis", Transition: "ease_in_out_cubic", Workers: 4,
	}
}

func TestApplyDefaults(t *testing.T) {
	spec := model.RunSpec{Source: model.Source{Path: "gdp.csv"}, Render: model.RenderSpec{FPS: 24}}

	ApplyDefaults(&spec, defaults())

	if spec.Normalization.TopN != 10 || spec.Normalization.Duplicates != "last" {
		t.Errorf("Unexpected normalization %+v", spec.Normalization)
	}
	r := spec.Render
	if r.FPS != 24 || r.Format != "gif" || r.Bars != 10 || r.Output != "race" || r.DPI != 100 {
		t.Errorf("Unexpected render %+v", r)
	}
	if spec.Concurrency.RenderWorkers != 4 {
		t.Errorf("Unexpected workers %d", spec.Concurrency.RenderWorkers)
	}
	if err := ValidateSpec(spec); err != nil {
		t.Errorf("Expected defaulted spec to validate, got %v", err)
	}
}

func TestValidateSpec_Problems(t *testing.T) {
	spec := model.RunSpec{
		Source:          model.Source{Path: "gdp.parquet"},
		Transformations: []string{"reverse"},
		Normalization:   model.Normalization{TopN: 500, Duplicates: "mean"},
		Render:          model.RenderSpec{Format: "avi", FPS: 60, Output: "../race"},
		Export:          &model.Export{File: "wide.xml"},
		Concurrency:     model.Concurrency{JobTimeout: "soon"},
	}
	ApplyDefaults(&spec, defaults())

	err := ValidateSpec(spec)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
	for _, want := range []string{
		"unsupported source type", "unknown transformation", "topN", "duplicate policy",
		"output format", "render.fps", "plain name", "export file", "jobTimeout",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Expected %q in %v", want, err)
		}
	}
}

func TestValidateSpec_RequiresSource(t *testing.T) {
	spec := model.RunSpec{Render: model.RenderSpec{Skip: true}}
	ApplyDefaults(&spec, defaults())

	if err := ValidateSpec(spec); err == nil || !strings.Contains(err.Error(), "source.path") {
		t.Errorf("Expected missing source error, got %v", err)
	}
}
