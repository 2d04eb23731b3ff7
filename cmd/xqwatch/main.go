// Command xqwatch prints a room's live events.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/park285/xiangqi-server/internal/apiclient"
	"github.com/park285/xiangqi-server/internal/msgcat"
	"github.com/park285/xiangqi-server/internal/push"
	"github.com/park285/xiangqi-server/pkg/xqdto"
)

func main() {
	url := flag.String("url", envOr("XQ_PUSH_URL", "ws://localhost:8081/ws"), "push endpoint")
	api := flag.String("api", envOr("XQ_API_URL", ""), "HTTP API base URL, used to resolve room codes")
	roomID := flag.String("room", "", "room id, or a room code when -api is set")
	lang := flag.String("lang", envOr("MESSAGES_LANG", msgcat.DefaultLang), "message language")
	token := flag.String("token", os.Getenv("XQ_TOKEN"), "bearer token sent on the handshake")
	retries := flag.Int("retries", 5, "reconnect attempts after a drop")
	flag.Parse()

	if strings.TrimSpace(*roomID) == "" {
		log.Fatal("-room is required")
	}
	cat, err := msgcat.New(*lang, os.Getenv("MESSAGES_DIR"))
	if err != nil {
		log.Fatalf("message catalog error: %v", err)
	}

	if *api != "" {
		client := apiclient.New(*api, apiclient.WithToken(*token))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		r, err := client.Room(ctx, *roomID)
		if err != nil {
			cancel()
			log.Fatalf("resolve room: %v", err)
		}
		*roomID = r.ID
		if g, err := client.Snapshot(ctx, r.ID); err == nil && g != nil {
			raw, _ := json.Marshal(g)
			printf(cat, "watch.event", map[string]any{"Event": "Snapshot", "Summary": summarize(&xqdto.Event{Event: xqdto.EventMoveApplied, Payload: raw})})
		}
		cancel()
	}

	w := push.NewWatcher(*url, *roomID, *retries)
	if *token != "" {
		w.SetHeaderProvider(func() map[string]string {
			return map[string]string{"Authorization": "Bearer " + *token}
		})
	}
	w.OnStateChange(func(state push.State) {
		switch state {
		case push.StateConnected:
			printf(cat, "watch.connected", map[string]any{"Room": *roomID})
		case push.StateDisconnected, push.StateFailed:
			printf(cat, "watch.disconnected", map[string]any{"Reason": state.String()})
		}
	})
	w.OnEvent(func(ev *xqdto.Event) {
		printf(cat, "watch.event", map[string]any{"Event": ev.Event, "Summary": summarize(ev)})
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := w.Connect(ctx); err != nil && *retries <= 0 {
		cancel()
		log.Fatalf("connect error: %v", err)
	}
	cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	closeCtx, closeCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer closeCancel()
	_ = w.Close(closeCtx)
}

func printf(cat *msgcat.Catalog, key string, data map[string]any) {
	line, err := cat.Render(key, data)
	if err != nil {
		line = fmt.Sprintf("%s %v", key, data)
	}
	fmt.Println(line)
}

// summarize renders the payload of an event on one line.
func summarize(ev *xqdto.Event) string {
	switch ev.Event {
	case xqdto.EventGameStarted, xqdto.EventMoveApplied, xqdto.EventGameEnded:
		var g xqdto.GameView
		if err := json.Unmarshal(ev.Payload, &g); err != nil {
			return "unreadable game payload"
		}
		parts := []string{fmt.Sprintf("red %s black %s", clockText(g.Clock.RedMs), clockText(g.Clock.BlackMs))}
		if mv := g.LastMove(); mv != nil {
			parts = append([]string{fmt.Sprintf("%d. %s", mv.Ply, mv.Notation)}, parts...)
		}
		if g.Result != "" && g.Result != "ongoing" {
			parts = append(parts, g.Result+" by "+g.ResultReason)
		} else {
			parts = append(parts, g.Clock.SideToMove+" to move")
		}
		return strings.Join(parts, " | ")
	case xqdto.EventLobbyUpdated, xqdto.EventSeatsUpdated:
		var l xqdto.LobbyView
		if err := json.Unmarshal(ev.Payload, &l); err != nil {
			return "unreadable lobby payload"
		}
		return fmt.Sprintf("red=%s black=%s waiting=%d spectators=%d",
			orDash(l.RedID), orDash(l.BlackID), len(l.Waiting), len(l.Spectators))
	}
	return string(ev.Payload)
}

func clockText(ms int64) string {
	d := time.Duration(ms) * time.Millisecond
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func envOr(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}
