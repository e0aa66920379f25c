// Command client is a line-oriented terminal chat client. It drives the
// HTTP API for mutations and mirrors pushed events into the local view.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tantalumq/taco/client"
	"github.com/tantalumq/taco/internal/domain"
)

func main() {
	serverURL := flag.String("server", "http://localhost:3000", "server base URL")
	wsURL := flag.String("ws", "ws://localhost:3000/ws", "websocket URL")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	api := client.NewAPI(*serverURL)
	stdin := bufio.NewScanner(os.Stdin)

	if err := authenticate(ctx, api, stdin); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	session := api.Session()
	fmt.Printf("logged in as %s\n", session.UserID)

	rec := client.NewReconciler(session.UserID)
	if chats, err := api.Chats(ctx); err == nil {
		rec.SetChats(chats)
	}

	listener := client.NewListener(*wsURL, func() string { return api.Session().ID }, logger)
	go listener.Run(ctx)
	go consumeNotices(ctx, api, rec, listener)

	repl(ctx, api, rec, stdin)
}

func authenticate(ctx context.Context, api *client.API, stdin *bufio.Scanner) error {
	fmt.Print("login or register? [l/r]: ")
	choice := readLine(stdin)
	fmt.Print("username: ")
	username := readLine(stdin)
	fmt.Print("password: ")
	password := readLine(stdin)

	if strings.HasPrefix(choice, "r") {
		return api.Register(ctx, username, password)
	}
	return api.LogIn(ctx, username, password)
}

// consumeNotices is the single writer applying stream updates. A
// Connected notice means events may have been missed, so the open chat
// is reloaded from scratch.
func consumeNotices(ctx context.Context, api *client.API, rec *client.Reconciler, listener *client.Listener) {
	for notice := range listener.Notices() {
		if notice.Connected {
			if chats, err := api.Chats(ctx); err == nil {
				rec.SetChats(chats)
			}
			if open := rec.OpenChatID(); open != "" {
				if messages, err := api.Messages(ctx, open); err == nil {
					rec.OpenChat(open, messages)
				}
			}
			continue
		}

		rec.Apply(*notice.Payload)
		if msg := notice.Payload.ChatMessage; msg != nil && msg.ChatID == rec.OpenChatID() {
			fmt.Printf("\n%s: %s\n> ", msg.SenderID, msg.Message)
		}
	}
}

func repl(ctx context.Context, api *client.API, rec *client.Reconciler, stdin *bufio.Scanner) {
	help()
	for {
		fmt.Print("> ")
		line := readLine(stdin)
		if line == "" {
			continue
		}
		cmd, arg, _ := strings.Cut(line, " ")

		switch cmd {
		case "chats":
			me := api.Session().UserID
			for _, chat := range rec.Chats() {
				fmt.Printf("  %s  with %s  (active %s)\n", chat.ID, chat.OtherMember(me), chat.LastUpdated.Format("15:04:05"))
			}
		case "open":
			messages, err := api.Messages(ctx, arg)
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			rec.OpenChat(arg, messages)
			printHistory(rec)
		case "add":
			chat, err := api.CreateChat(ctx, arg)
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			fmt.Println("created chat", chat.ID)
		case "say":
			sendMessage(ctx, api, rec, arg)
		case "reply":
			target, content, ok := strings.Cut(arg, " ")
			if !ok {
				fmt.Println("usage: reply <message_id> <text>")
				continue
			}
			rec.SetReplyDraft(target)
			sendMessage(ctx, api, rec, content)
		case "del":
			if err := api.DeleteMessage(ctx, arg); err != nil {
				fmt.Println("error:", err)
			}
		case "leave":
			if err := api.LeaveChat(ctx, arg); err != nil {
				fmt.Println("error:", err)
			}
		case "status":
			status, err := api.Status(ctx, arg)
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			state := "offline"
			if status.Online {
				state = "online"
			}
			fmt.Printf("  %s (%s) is %s\n", status.DisplayName, status.ID, state)
		case "name":
			name := arg
			if err := api.UpdateProfile(ctx, domain.ProfileUpdate{DisplayName: &name}); err != nil {
				fmt.Println("error:", err)
			}
		case "quit":
			_ = api.LogOut(ctx)
			return
		default:
			help()
		}
	}
}

func sendMessage(ctx context.Context, api *client.API, rec *client.Reconciler, content string) {
	open := rec.OpenChatID()
	if open == "" {
		fmt.Println("no chat open")
		return
	}

	var replyTo *string
	if draft := rec.ReplyDraft(); draft != "" {
		replyTo = &draft
	}

	// The input is already cleared at this point; the message enters
	// the view only once the server assigns it an id.
	id, err := api.CreateMessage(ctx, open, content, replyTo)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	rec.ApplySendResponse(id, content, time.Now())
}

func printHistory(rec *client.Reconciler) {
	for _, msg := range rec.Messages() {
		// A reply target may have been deleted; print the message without
		// its quote in that case.
		if target, ok := rec.ReplyPreview(msg); ok {
			fmt.Printf("  [%s] %s (> %s: %s): %s\n", msg.ID, msg.SenderID, target.SenderID, target.Content, msg.Content)
			continue
		}
		fmt.Printf("  [%s] %s: %s\n", msg.ID, msg.SenderID, msg.Content)
	}
}

func help() {
	fmt.Println(`commands:
  chats              list chats, most recent first
  open <chat_id>     open a chat and print its history
  add <username>     create a chat with a user
  say <text>         send a message to the open chat
  reply <id> <text>  reply to a message in the open chat
  del <message_id>   delete one of your messages
  leave <chat_id>    leave a chat
  status <username>  show a user's profile and presence
  name <display>     change your display name
  quit               log out and exit`)
}

func readLine(stdin *bufio.Scanner) string {
	if !stdin.Scan() {
		os.Exit(0)
	}
	return strings.TrimSpace(stdin.Text())
}
