// Package app wires the messenger client components together.
package app

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"messenger/internal/apiclient"
	"messenger/internal/config"
	"messenger/internal/confirm"
	"messenger/internal/gateway"
	"messenger/internal/groups"
	"messenger/internal/session"
	"messenger/internal/typing"
	"messenger/internal/uploads"
	"messenger/pkg/types"
)

// Application owns the client session: one data service client, one
// gateway connection, one session store and the components around them.
type Application struct {
	cfg     *config.Config
	log     zerolog.Logger
	api     *apiclient.Client
	gw      *gateway.Gateway
	store   *session.Store
	typing  *typing.Debouncer
	uploads *uploads.Coordinator
	groups  *groups.Controller
	confirm *confirm.Flow

	// subscriptions maps event name to subscription id so Stop can pair
	// every Subscribe with an Unsubscribe.
	subscriptions map[string]string

	// onMessage, when set, is called for every pushed chat message after
	// it has been applied to the store.
	onMessage func(types.Message)
}

// destructiveExecutor adapts the store and group controller to the
// confirmation flow's executor.
type destructiveExecutor struct {
	store  *session.Store
	groups *groups.Controller
}

func (e destructiveExecutor) ClearChat(ctx context.Context, conversationID string) error {
	return e.store.ClearChat(ctx, conversationID)
}

func (e destructiveExecutor) ArchiveConversation(ctx context.Context, conversationID string) error {
	return e.store.ArchiveConversation(ctx, conversationID)
}

func (e destructiveExecutor) DeleteConversation(ctx context.Context, conversationID string) error {
	return e.store.DeleteConversation(ctx, conversationID)
}

func (e destructiveExecutor) LeaveGroup(ctx context.Context, conversationID string) error {
	return e.groups.Leave(ctx, conversationID)
}

// NewApplication builds all components in dependency order:
// API client → gateway → store → debouncer/uploads/groups → confirm.
func NewApplication(cfg *config.Config, log zerolog.Logger) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	api := apiclient.NewClient(cfg.APIBaseURL, cfg.AuthToken, cfg.HTTPTimeout, log)
	gw := gateway.New(cfg, log)
	store := session.NewStore(api, cfg.UserID, cfg.TypingTTL, log)
	debouncer := typing.NewDebouncer(gw, cfg.TypingDebounce, log)
	uploadCoord := uploads.New(api, log)
	groupCtrl := groups.NewController(api, store, cfg.UserID, log)
	confirmFlow := confirm.NewFlow(destructiveExecutor{store: store, groups: groupCtrl}, log)

	return &Application{
		cfg:           cfg,
		log:           log.With().Str("component", "app").Logger(),
		api:           api,
		gw:            gw,
		store:         store,
		typing:        debouncer,
		uploads:       uploadCoord,
		groups:        groupCtrl,
		confirm:       confirmFlow,
		subscriptions: make(map[string]string),
	}, nil
}

// SetOnMessage registers a callback for pushed chat messages. Must be
// called before Start.
func (a *Application) SetOnMessage(fn func(types.Message)) {
	a.onMessage = fn
}

// Start bootstraps the store, dials the gateway and subscribes the store
// to the push events. Subscriptions are recorded so Stop can tear every
// one of them down.
func (a *Application) Start(ctx context.Context) error {
	if err := a.store.Bootstrap(ctx); err != nil {
		return err
	}
	if err := a.gw.Dial(ctx); err != nil {
		return fmt.Errorf("dial gateway: %w", err)
	}

	a.subscriptions[types.EventChatMessage] = a.gw.Subscribe(types.EventChatMessage, a.handleChatMessage)
	a.subscriptions[types.EventTyping] = a.gw.Subscribe(types.EventTyping, a.store.ApplyEvent)
	a.subscriptions[types.EventConversationUpdated] = a.gw.Subscribe(types.EventConversationUpdated, a.store.ApplyEvent)

	a.log.Info().Str("user", a.cfg.UserID).Msg("messenger session started")
	return nil
}

func (a *Application) handleChatMessage(evt types.Event) {
	a.store.ApplyEvent(evt)
	if a.onMessage == nil {
		return
	}
	var msg types.Message
	if err := json.Unmarshal(evt.Payload, &msg); err != nil {
		return
	}
	a.onMessage(msg)
}

// SendActive sends from the composed input: text plus whatever the upload
// coordinator holds. Blocked while uploads are in flight; on success the
// pending attachment set is reset.
func (a *Application) SendActive(ctx context.Context, conversationID, recipientID, text string) (*types.Message, error) {
	if a.uploads.IsUploading() {
		return nil, uploads.ErrUploadsInFlight
	}

	msg, err := a.store.SendMessage(ctx, conversationID, recipientID, text, a.uploads.PendingIDs(), a.uploads.Pending())
	if err != nil {
		return nil, err
	}
	a.uploads.Reset()
	return msg, nil
}

// Stop unsubscribes every handler, stops the debouncer timers and closes
// the gateway.
func (a *Application) Stop(ctx context.Context) error {
	for event, id := range a.subscriptions {
		a.gw.Unsubscribe(event, id)
		delete(a.subscriptions, event)
	}
	a.typing.Stop()

	if err := a.gw.Close(); err != nil {
		a.log.Warn().Err(err).Msg("gateway close failed")
	}
	a.log.Info().Msg("messenger session stopped")
	return nil
}

// Store returns the session state store.
func (a *Application) Store() *session.Store { return a.store }

// Typing returns the typing debouncer.
func (a *Application) Typing() *typing.Debouncer { return a.typing }

// Uploads returns the attachment upload coordinator.
func (a *Application) Uploads() *uploads.Coordinator { return a.uploads }

// Groups returns the group membership controller.
func (a *Application) Groups() *groups.Controller { return a.groups }

// Confirm returns the destructive-action confirmation flow.
func (a *Application) Confirm() *confirm.Flow { return a.confirm }
