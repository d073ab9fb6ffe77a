package core

import (
	"context"
	"strconv"
	"testing"
	"time"
)

func benchmarkRoomBroadcast(b *testing.B, recipients int) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub()
	go hub.Run(ctx)

	sender := NewClient("sender", Identity{Name: "sender"}, 64)
	hub.RegisterClient(sender)
	sender.Commands <- &Command{Kind: CommandJoinRoom, Room: "bench"}

	clients := make([]*Client, 0, recipients)
	for i := 0; i < recipients; i++ {
		c := NewClient("c"+strconv.Itoa(i), Identity{Name: "client"}, 64)
		hub.RegisterClient(c)
		c.Commands <- &Command{Kind: CommandJoinRoom, Room: "bench"}
		clients = append(clients, c)
	}

	// Drain events for everyone except the target to avoid dropped deliveries.
	target := clients[0]
	for _, c := range append(clients[1:], sender) {
		go func(cl *Client) {
			for range cl.Events {
			}
		}(c)
	}

	for hub.Registry().Count("bench") != recipients+1 {
		time.Sleep(time.Millisecond)
	}

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		sender.Commands <- &Command{
			Kind:    CommandSendMessage,
			Room:    "bench",
			Content: "payload",
		}
		<-target.Events
	}
}

func BenchmarkRoomBroadcast_10(b *testing.B)  { benchmarkRoomBroadcast(b, 10) }
func BenchmarkRoomBroadcast_100(b *testing.B) { benchmarkRoomBroadcast(b, 100) }
func BenchmarkRoomBroadcast_500(b *testing.B) { benchmarkRoomBroadcast(b, 500) }
