package main

// DefaultDeck is used when no -deck file is given.
//
// Components are drawn at one shared anchor. With a component font whose
// glyphs are pre-positioned inside the full character box they assemble
// into the character; with an ordinary font they overlap in the centre.
var DefaultDeck = []Character{
	{Character: "明", Meaning: "bright", Components: []string{"日", "月"}},
	{Character: "休", Meaning: "rest", Components: []string{"亻", "木"}},
	{Character: "林", Meaning: "grove", Components: []string{"木", "木"}},
	{Character: "森", Meaning: "forest", Components: []string{"木", "木", "木"}},
	{Character: "好", Meaning: "like", Components: []string{"女", "子"}},
	{Character: "男", Meaning: "man", Components: []string{"田", "力"}},
	{Character: "語", Meaning: "language", Components: []string{"言", "五", "口"}},
	{Character: "間", Meaning: "interval", Components: []string{"門", "日"}},
}

// OverlayDeck is drawn with Latin components only, so any font can render
// it. It replaces DefaultDeck when the loaded font has no CJK glyphs.
var OverlayDeck = []Character{
	{Character: "Φ", Meaning: "phi", Components: []string{"O", "I"}},
	{Character: "Θ", Meaning: "theta", Components: []string{"O", "-"}},
	{Character: "Ø", Meaning: "slashed o", Components: []string{"O", "/"}},
	{Character: "$", Meaning: "dollar", Components: []string{"S", "|"}},
	{Character: "¢", Meaning: "cent", Components: []string{"c", "|"}},
	{Character: "€", Meaning: "euro", Components: []string{"C", "="}},
}

const usageText = `Stroke Quiz - character writing quiz with a staged-reveal canvas

Usage:
  stroke-quiz [options]                       serve the HTTP API (default)
  stroke-quiz -mode play [options]            play in the terminal
  stroke-quiz -mode render -character 明 -components 日,月 -stage 1

Options:
`

const usageFooter = `
Environment:
  ANTHROPIC_API_KEY - API key for Claude (alternative to -key flag)

HTTP API (serve mode):
  POST /api/anthropic                   pass-through to the Messages API
  POST /api/sessions                    start a quiz session
  GET  /api/sessions/{id}               session state
  POST /api/sessions/{id}/pointer       {"type":"down|move|up|leave","x":..,"y":..}
  POST /api/sessions/{id}/redraw|advance|next|check
  GET  /api/sessions/{id}/surface.png   current canvas

Play mode keys:
  mouse     draw          enter  check answer
  space     next stage    n      next character
  r         clear         esc/q  quit
`
