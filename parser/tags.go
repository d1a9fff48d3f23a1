package parser

import "strings"

type tagMarker struct {
	marker string
	tag    string
}

// tagMarkers are matched literally. Output follows this order.
var tagMarkers = []tagMarker{
	{marker: "[On Play]", tag: "opl"},
	{marker: "[When Attacking]", tag: "wat"},
	{marker: "[Activate: Main]", tag: "acm"},
	{marker: "[Main]", tag: "man"},
	{marker: "[On K.O.]", tag: "oko"},
	{marker: "[Blocker]", tag: "blk"},
	{marker: "[Rush]", tag: "rsh"},
	{marker: "[Double Attack]", tag: "dba"},
	{marker: "[Banish]", tag: "ban"},
	{marker: "[Counter]", tag: "ctr"},
	{marker: "[End of Your Turn]", tag: "eot"},
	{marker: "[On Block]", tag: "obk"},
	{marker: "[Your Turn]", tag: "ytn"},
	{marker: "[Opponent's Turn]", tag: "otn"},
	{marker: "[DON!! x", tag: "don"},
	{marker: "[Trigger]", tag: "trg"},
}

// ComputeTags returns the tag code of every keyword marker found in the
// effect and trigger text, once each, in table order.
func ComputeTags(effect, trigger string) []string {
	corpus := effect + " " + trigger
	tags := []string{}
	for _, m := range tagMarkers {
		if strings.Contains(corpus, m.marker) {
			tags = append(tags, m.tag)
		}
	}
	return tags
}

// JoinTags renders tags in their stored comma-joined form.
func JoinTags(tags []string) string {
	return strings.Join(tags, ",")
}
