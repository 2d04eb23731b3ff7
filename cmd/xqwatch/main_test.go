package main

import (
	"encoding/json"
	"testing"

	"github.com/park285/xiangqi-server/pkg/xqdto"
)

func TestSummarizeMove(t *testing.T) {
	g := xqdto.GameView{
		Result: "ongoing",
		Moves:  []xqdto.MoveView{{Ply: 1, Notation: "e3e4"}},
		Clock:  xqdto.ClockView{RedMs: 303_000, BlackMs: 300_000, SideToMove: "black"},
	}
	raw, _ := json.Marshal(g)
	got := summarize(&xqdto.Event{Event: xqdto.EventMoveApplied, Payload: raw})
	want := "1. e3e4 | red 5:03 black 5:00 | black to move"
	if got != want {
		t.Fatalf("summarize = %q, want %q", got, want)
	}
}

func TestSummarizeLobby(t *testing.T) {
	raw, _ := json.Marshal(xqdto.LobbyView{RedID: "u1", Waiting: []string{"u3"}})
	got := summarize(&xqdto.Event{Event: xqdto.EventSeatsUpdated, Payload: raw})
	if got != "red=u1 black=- waiting=1 spectators=0" {
		t.Fatalf("summarize = %q", got)
	}
}
