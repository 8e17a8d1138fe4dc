package sitemap

import (
	"errors"
	"time"

	"github.com/starford/blockpress/internal/logfields"
	"github.com/starford/blockpress/internal/models"
	"github.com/starford/blockpress/internal/recordmap"
)

var errUnset = errors.New("not set")

// timeStep is one candidate source of a page timestamp.
type timeStep struct {
	name string
	// override marks steps whose failure is worth a warning.
	override bool
	read     func() (time.Time, error)
}

// overrideStep reads a configured property as a timestamp. An empty
// property name yields no step.
func overrideStep(property string, block *models.Block, rm *models.RecordMap) []timeStep {
	if property == "" {
		return nil
	}
	return []timeStep{{
		name:     property,
		override: true,
		read: func() (time.Time, error) {
			v, err := recordmap.ReadProperty(property, block, rm)
			if err != nil {
				return time.Time{}, err
			}
			return v.Timestamp()
		},
	}}
}

func nativeStep(name string, ts models.Timestamp) timeStep {
	return timeStep{
		name: name,
		read: func() (time.Time, error) {
			if t, ok := ts.Time(); ok {
				return t, nil
			}
			return time.Time{}, errUnset
		},
	}
}

// resolveTime walks the chain and returns the first time a step yields,
// or nil when every step fails.
func (b *Builder) resolveTime(pageID string, chain ...timeStep) *time.Time {
	for _, step := range chain {
		t, err := step.read()
		if err == nil {
			return &t
		}
		if step.override {
			b.logger.Warn("sitemap: timestamp override unusable, falling back",
				logfields.PageID(pageID),
				logfields.Property(step.name),
				logfields.Error(err))
			b.rec.IncOverrideFallback(step.name)
		}
	}
	return nil
}

func (b *Builder) lastEditedTime(pageID string, block *models.Block, rm *models.RecordMap) *time.Time {
	chain := append(overrideStep(b.opts.LastEditedTimeProperty, block, rm), nativeStep("last_edited_time", block.LastEditedTime))
	return b.resolveTime(pageID, chain...)
}

func (b *Builder) createdTime(pageID string, block *models.Block, rm *models.RecordMap) *time.Time {
	chain := append(overrideStep(b.opts.CreatedTimeProperty, block, rm), nativeStep("created_time", block.CreatedTime))
	return b.resolveTime(pageID, chain...)
}
