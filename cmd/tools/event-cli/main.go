package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/annel0/radzone/internal/eventbus"
	"github.com/annel0/radzone/internal/region"
)

const (
	defaultServerAddr = "localhost:8088"
	timeFormat        = "2006-01-02T15:04:05Z"
)

func main() {
	var (
		serverAddr = flag.String("server", defaultServerAddr, "адрес REST API сервера")
		eventTypes = flag.String("types", "", "фильтр типов событий (через запятую)")
		limit      = flag.Int("limit", 0, "выйти после N событий (0 - без ограничения)")
		token      = flag.String("token", "", "Bearer токен, если сервер его требует")
		raw        = flag.Bool("raw", false, "печатать конверт события как есть")
	)
	flag.Parse()

	u := url.URL{Scheme: "ws", Host: *serverAddr, Path: "/ws/events"}
	if *eventTypes != "" {
		u.RawQuery = url.Values{"types": {*eventTypes}}.Encode()
	}

	header := http.Header{}
	if *token != "" {
		header.Set("Authorization", "Bearer "+*token)
	}

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), header)
	if err != nil {
		log.Fatalf("❌ Не удалось подключиться к %s: %v", u.String(), err)
	}
	defer conn.Close()

	fmt.Printf("🎬 Слежение за событиями %s (limit: %d)\n", u.String(), *limit)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-interrupt
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		conn.Close()
	}()

	count := 0
	for *limit == 0 || count < *limit {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) && !strings.Contains(err.Error(), "use of closed") {
				log.Printf("⚠️ Поток прерван: %v", err)
			}
			break
		}

		var ev eventbus.Envelope
		if err := json.Unmarshal(msg, &ev); err != nil {
			log.Printf("⚠️ Некорректное событие: %v", err)
			continue
		}
		if *raw {
			fmt.Println(string(msg))
		} else {
			printEvent(&ev)
		}
		count++
	}

	fmt.Printf("\n📊 Всего событий: %d\n", count)
}

// printEvent выводит событие региона в одну строку
func printEvent(ev *eventbus.Envelope) {
	var def region.Definition
	if err := json.Unmarshal(ev.Payload, &def); err != nil || def.Name == "" {
		fmt.Printf("[%s] %s from %s id=%s\n", ev.Timestamp.Format(timeFormat), ev.EventType, ev.Source, ev.ID)
		return
	}

	icon := "☢️"
	if ev.EventType == eventbus.TypeRegionRemoved {
		icon = "🗑️"
	}
	fmt.Printf("[%s] %s %s %s: %d вершин, y=[%d..%d], вокселей %d, уровень %.1f\n",
		ev.Timestamp.Format(timeFormat), icon, ev.EventType, def.Key(),
		len(def.Polygon), def.MinY, def.MaxY, def.Volume, def.Level)
}
