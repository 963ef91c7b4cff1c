package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"messenger/internal/app"
	"messenger/internal/confirm"
	"messenger/internal/config"
	"messenger/pkg/types"
)

func main() {
	apiURL := flag.String("api", "", "data service base URL (overrides MESSENGER_API_URL)")
	gatewayURL := flag.String("gateway", "", "gateway websocket URL (overrides MESSENGER_GATEWAY_URL)")
	userID := flag.String("user", "", "user id (overrides MESSENGER_USER_ID)")
	token := flag.String("token", "", "bearer token (overrides MESSENGER_TOKEN)")
	flag.Parse()

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	if *apiURL != "" {
		cfg.APIBaseURL = *apiURL
	}
	if *gatewayURL != "" {
		cfg.GatewayURL = *gatewayURL
	}
	if *userID != "" {
		cfg.UserID = *userID
	}
	if *token != "" {
		cfg.AuthToken = *token
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(cfg.LoggerLevel()).
		With().Timestamp().Logger()

	application, err := app.NewApplication(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build application")
	}

	application.SetOnMessage(func(msg types.Message) {
		if msg.SenderID != cfg.UserID {
			fmt.Printf("\r%s: %s\n> ", msg.SenderID, msg.Text)
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := application.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start session")
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-interrupt
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		application.Stop(shutdownCtx)
		cancel()
		os.Exit(0)
	}()

	fmt.Println("messenger connected; /help for commands")
	repl(ctx, application)
}

// repl reads commands from stdin until EOF. Plain input lines are sent to
// the active conversation; slash commands drive everything else.
func repl(ctx context.Context, application *app.Application) {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			if strings.HasPrefix(line, "/") {
				runCommand(ctx, application, line)
			} else {
				sendToActive(ctx, application, line)
			}
		}
		fmt.Print("> ")
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	application.Stop(shutdownCtx)
}

func sendToActive(ctx context.Context, application *app.Application, text string) {
	store := application.Store()
	activeID := store.ActiveID()
	if activeID == "" {
		fmt.Println("no active conversation; /open <id> first")
		return
	}

	// A line of input counts as composing activity.
	application.Typing().Keystroke(activeID)

	recipientID := ""
	if conv, ok := store.Conversation(activeID); ok && conv.OtherUser != nil {
		recipientID = conv.OtherUser.UserID
	}
	if _, err := application.SendActive(ctx, activeID, recipientID, text); err != nil {
		// Input is restored for an explicit resend; nothing retries on
		// its own.
		fmt.Printf("send failed (%v); input kept: %q\n", err, text)
	}
}

func runCommand(ctx context.Context, application *app.Application, line string) {
	store := application.Store()
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "/help":
		fmt.Println(`/list                       list conversations
/open <conversation-id>     activate a conversation and load history
/start <user-id>            start or reopen a 1:1 conversation
/contacts                   list the company directory
/upload <path>              upload a file for the next send
/group create <name> <user-id>...
/group members              list members of the active group
/group add <user-id>...     add members to the active group
/group remove <user-id>     remove a member from the active group
/group rename <name>        rename the active group
/clear | /archive | /delete | /leave   destructive, needs /confirm
/confirm | /cancel          resolve a pending destructive action
/quit`)
	case "/list":
		for _, conv := range store.Conversations() {
			marker := " "
			if conv.ID == store.ActiveID() {
				marker = "*"
			}
			fmt.Printf("%s %s  %s  (unread %d)\n", marker, conv.ID, conv.DisplayName(), conv.Unread)
		}
	case "/open":
		if len(args) != 1 {
			fmt.Println("usage: /open <conversation-id>")
			return
		}
		if err := store.LoadMessages(ctx, args[0]); err != nil {
			fmt.Printf("open failed: %v\n", err)
			return
		}
		for _, msg := range store.Messages() {
			fmt.Printf("%s: %s\n", msg.SenderID, msg.Text)
		}
		if typing := store.TypingUsers(args[0]); len(typing) > 0 {
			fmt.Printf("typing: %s\n", strings.Join(typing, ", "))
		}
	case "/start":
		if len(args) != 1 {
			fmt.Println("usage: /start <user-id>")
			return
		}
		conv, err := store.StartConversation(ctx, args[0])
		if err != nil {
			fmt.Printf("start failed: %v\n", err)
			return
		}
		fmt.Printf("conversation %s ready; /open %s\n", conv.ID, conv.ID)
	case "/contacts":
		for _, u := range store.Contacts() {
			fmt.Printf("%s  %s <%s>\n", u.UserID, u.FullName, u.Email)
		}
	case "/upload":
		if len(args) != 1 {
			fmt.Println("usage: /upload <path>")
			return
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			fmt.Printf("read failed: %v\n", err)
			return
		}
		meta, err := application.Uploads().Upload(ctx, args[0], data, "")
		if err != nil {
			fmt.Printf("upload failed: %v\n", err)
			return
		}
		fmt.Printf("attached %s (%s, %d bytes)\n", meta.ID, meta.MIME, meta.Size)
	case "/group":
		runGroupCommand(ctx, application, args)
	case "/clear", "/archive", "/delete", "/leave":
		requestDestructive(application, cmd)
	case "/confirm":
		if err := application.Confirm().Confirm(ctx); err != nil {
			fmt.Printf("action failed: %v\n", err)
		}
	case "/cancel":
		application.Confirm().Cancel()
	case "/quit":
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		application.Stop(shutdownCtx)
		os.Exit(0)
	default:
		fmt.Printf("unknown command %s; /help\n", cmd)
	}
}

func requestDestructive(application *app.Application, cmd string) {
	activeID := application.Store().ActiveID()
	if activeID == "" {
		fmt.Println("no active conversation")
		return
	}

	var action confirm.Action
	switch cmd {
	case "/clear":
		action = confirm.ActionClearChat
	case "/archive":
		action = confirm.ActionArchive
	case "/delete":
		action = confirm.ActionDelete
	case "/leave":
		action = confirm.ActionLeaveGroup
	}

	label := fmt.Sprintf("%s conversation %s", strings.TrimPrefix(cmd, "/"), activeID)
	if err := application.Confirm().Request(action, activeID, label); err != nil {
		fmt.Printf("cannot request: %v\n", err)
		return
	}
	fmt.Printf("about to %s; /confirm or /cancel\n", label)
}

func runGroupCommand(ctx context.Context, application *app.Application, args []string) {
	store := application.Store()
	if len(args) == 0 {
		fmt.Println("usage: /group create|members|add|remove|rename ...")
		return
	}

	if args[0] == "create" {
		if len(args) < 3 {
			fmt.Println("usage: /group create <name> <user-id>...")
			return
		}
		conv, err := application.Groups().CreateGroup(ctx, args[1], args[2:])
		if err != nil {
			fmt.Printf("create failed: %v\n", err)
			return
		}
		fmt.Printf("group %s created; /open %s\n", conv.ID, conv.ID)
		return
	}

	activeID := store.ActiveID()
	conv, ok := store.Conversation(activeID)
	if !ok || !conv.IsGroup {
		fmt.Println("active conversation is not a group")
		return
	}

	switch args[0] {
	case "members":
		members, err := application.Groups().Members(ctx, activeID)
		if err != nil {
			fmt.Printf("fetch failed: %v\n", err)
			return
		}
		for _, m := range members {
			fmt.Printf("%s  %s  (%s)\n", m.UserID, m.FullName, m.Role)
		}
	case "add":
		if err := application.Groups().AddMembers(ctx, activeID, args[1:]); err != nil {
			fmt.Printf("add failed: %v\n", err)
		}
	case "remove":
		if len(args) != 2 {
			fmt.Println("usage: /group remove <user-id>")
			return
		}
		if err := application.Groups().RemoveMember(ctx, activeID, args[1]); err != nil {
			fmt.Printf("remove failed: %v\n", err)
		}
	case "rename":
		if len(args) < 2 {
			fmt.Println("usage: /group rename <name>")
			return
		}
		if err := application.Groups().Rename(ctx, activeID, strings.Join(args[1:], " ")); err != nil {
			fmt.Printf("rename failed: %v\n", err)
		}
	default:
		fmt.Printf("unknown group command %s\n", args[0])
	}
}
