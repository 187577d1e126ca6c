package main

import (
	"bytes"
	"image"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/gogpu/gg/text"

	"stroke-quiz/entities/canvas"
	"stroke-quiz/tools/fonts"
	"stroke-quiz/tools/logger"
)

func stageZero(face text.Face, c Character) *image.RGBA {
	cv := canvas.New(canvas.Options{Rand: rand.New(rand.NewPCG(1, 2))}, logger.Discard())
	cv.SetFace(face)
	cv.Update(canvas.Props{Stage: 0, Character: c.Character, Components: c.Components})
	return cv.Surface()
}

func componentSet(c Character) []string {
	set := slices.Clone(c.Components)
	slices.Sort(set)
	return slices.Compact(set)
}

func TestSelectDeckSwapsBuiltinDeckForEmbeddedFont(t *testing.T) {
	f, err := fonts.LoadWithFallbacks("", 0, nil, logger.Discard())
	if err != nil {
		t.Fatalf("LoadWithFallbacks: %v", err)
	}
	defer f.Close()

	deck, err := selectDeck(DefaultDeck, false, f, logger.Discard())
	if err != nil {
		t.Fatalf("selectDeck: %v", err)
	}
	if deck[0].Character != OverlayDeck[0].Character {
		t.Errorf("built-in deck kept with a font that cannot draw it: %s", deck[0].Character)
	}

	if _, err := selectDeck(DefaultDeck, true, f, logger.Discard()); err == nil {
		t.Error("custom deck the font cannot draw should be rejected")
	}

	custom := []Character{{Character: "AH", Components: []string{"A", "H"}}}
	if got, err := selectDeck(custom, true, f, logger.Discard()); err != nil || got[0].Character != "AH" {
		t.Errorf("covered custom deck: got %v, %v", got, err)
	}
}

func TestStageZeroDistinguishesDeckEntries(t *testing.T) {
	f, err := fonts.Load("", fonts.DefaultSize, logger.Discard())
	if err != nil {
		t.Fatalf("fonts.Load: %v", err)
	}
	defer f.Close()

	deck, err := selectDeck(DefaultDeck, false, f, logger.Discard())
	if err != nil {
		t.Fatalf("selectDeck: %v", err)
	}

	surfaces := make([]*image.RGBA, len(deck))
	for i, c := range deck {
		surfaces[i] = stageZero(f.Face(), c)
	}
	for i := range deck {
		for j := i + 1; j < len(deck); j++ {
			if slices.Equal(componentSet(deck[i]), componentSet(deck[j])) {
				continue
			}
			if bytes.Equal(surfaces[i].Pix, surfaces[j].Pix) {
				t.Errorf("%s and %s render identical stage 0 surfaces with %s",
					deck[i].Character, deck[j].Character, f.Name())
			}
		}
	}
}
