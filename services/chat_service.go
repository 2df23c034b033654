package services

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/plugins"
	"chat-relay/protocol"
	"chat-relay/runtime"
	"context"
	"fmt"
	"log/slog"
	"strings"
)

var _ protocol.Handler = (*ChatService)(nil)

// ChatService implements every client operation on top of the relay core.
type ChatService struct {
	log        *slog.Logger
	lifecycle  *runtime.SessionLifecycle
	membership contract.IGroupMembership
	router     contract.IRouter
	relay      *runtime.PluginRelay
	plugins    *plugins.Manager
	documents  *DocumentService
}

func NewChatService(
	log *slog.Logger,
	lifecycle *runtime.SessionLifecycle,
	membership contract.IGroupMembership,
	router contract.IRouter,
	relay *runtime.PluginRelay,
	pluginManager *plugins.Manager,
	documents *DocumentService,
) *ChatService {
	return &ChatService{
		log:        log,
		lifecycle:  lifecycle,
		membership: membership,
		router:     router,
		relay:      relay,
		plugins:    pluginManager,
		documents:  documents,
	}
}

func (c *ChatService) Login(ctx context.Context, s *runtime.Session, username domain.Username, password string) (bool, error) {
	return c.lifecycle.Login(ctx, s, username, password)
}

func (c *ChatService) Register(ctx context.Context, username domain.Username, password string) (bool, error) {
	return c.lifecycle.Register(ctx, username, password)
}

func (c *ChatService) Logout(ctx context.Context, s *runtime.Session) {
	c.lifecycle.Logout(ctx, s)
}

func (c *ChatService) SendPrivateMessage(ctx context.Context, s *runtime.Session, target domain.Username, text string) (int, error) {
	if _, err := identityOf(s); err != nil {
		return 0, err
	}
	if !target.IsValid() {
		return 0, errors.ErrInvalidUsername
	}
	text, err := c.outgoing(text)
	if err != nil {
		return 0, err
	}
	return c.router.SendPrivate(ctx, s.ID(), target, domain.ReceivePrivateMessage, text)
}

// JoinGroup announces a first join to the group, itself included, and
// pushes the group list when the group was just created.
func (c *ChatService) JoinGroup(ctx context.Context, s *runtime.Session, group domain.GroupName) (bool, error) {
	identity, err := identityOf(s)
	if err != nil {
		return false, err
	}
	res, err := c.membership.Join(group, s.Conn())
	if err != nil {
		return false, err
	}
	if !res.Joined {
		return false, nil
	}

	c.log.Debug("Group joined", "user", identity, "group", group, "created", res.Created)
	c.router.SendGroupSystem(ctx, group, domain.JoinedGroupMessage(identity, group))
	if res.Created {
		c.router.BroadcastGroupList(ctx)
	}
	return true, nil
}

// LeaveGroup tells the remaining members, or pushes the group list when the
// group disappeared with its last member.
func (c *ChatService) LeaveGroup(ctx context.Context, s *runtime.Session, group domain.GroupName) (bool, error) {
	identity, err := identityOf(s)
	if err != nil {
		return false, err
	}
	if !group.IsValid() {
		return false, errors.ErrInvalidGroupName
	}
	res := c.membership.Leave(group, s.ID())
	if !res.Left {
		return false, nil
	}

	c.log.Debug("Group left", "user", identity, "group", group, "removed", res.Removed)
	if res.Removed {
		c.router.BroadcastGroupList(ctx)
	} else {
		c.router.SendGroupSystem(ctx, group, domain.LeftGroupMessage(identity, group))
	}
	return true, nil
}

func (c *ChatService) SendGroupMessage(ctx context.Context, s *runtime.Session, group domain.GroupName, text string) (int, error) {
	if _, err := identityOf(s); err != nil {
		return 0, err
	}
	if !group.IsValid() {
		return 0, errors.ErrInvalidGroupName
	}
	text, err := c.outgoing(text)
	if err != nil {
		return 0, err
	}
	return c.router.SendGroup(ctx, s.ID(), group, domain.ReceiveGroupMessage, text)
}

// GetOpenGroups is allowed before login so a client can show the list
// on its login screen.
func (c *ChatService) GetOpenGroups(_ context.Context) []domain.GroupName {
	return c.membership.OpenGroups()
}

func (c *ChatService) RequestPluginTransfer(ctx context.Context, s *runtime.Session, target domain.Username) (int, error) {
	if !target.IsValid() {
		return 0, errors.ErrInvalidUsername
	}
	return c.relay.RequestTransfer(ctx, s.ID(), target)
}

func (c *ChatService) AcceptPluginTransfer(ctx context.Context, s *runtime.Session, requester domain.Username) (int, error) {
	if !requester.IsValid() {
		return 0, errors.ErrInvalidUsername
	}
	return c.relay.AcceptTransfer(ctx, s.ID(), requester)
}

func (c *ChatService) TransferPluginPayload(ctx context.Context, s *runtime.Session, target domain.Username, payload []byte) (int, error) {
	if !target.IsValid() {
		return 0, errors.ErrInvalidUsername
	}
	return c.relay.TransferPayload(ctx, s.ID(), target, payload)
}

func (c *ChatService) SendWhiteboardLine(ctx context.Context, s *runtime.Session, target string, isGroup bool, line domain.Line) (int, error) {
	switch {
	case isGroup && !domain.GroupName(target).IsValid():
		return 0, errors.ErrInvalidGroupName
	case !isGroup && !domain.Username(target).IsValid():
		return 0, errors.ErrInvalidUsername
	}
	return c.relay.SendWhiteboardLine(ctx, s.ID(), target, isGroup, line)
}

// UploadDocument credits the caller when no author is given.
func (c *ChatService) UploadDocument(ctx context.Context, s *runtime.Session, filename string, content []byte,
	author string, metadataJSON string) (string, error) {
	identity, err := identityOf(s)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(author) == "" {
		author = identity.String()
	}
	doc, err := c.documents.Upload(ctx, filename, content, author, metadataJSON)
	if err != nil {
		return "", err
	}
	return doc.ID, nil
}

func (c *ChatService) DownloadDocument(ctx context.Context, s *runtime.Session, id string) (*domain.DownloadedDocument, error) {
	if _, err := identityOf(s); err != nil {
		return nil, err
	}
	return c.documents.Download(ctx, id)
}

func (c *ChatService) SearchDocuments(ctx context.Context, s *runtime.Session, query string) ([]domain.DocumentSummary, error) {
	if _, err := identityOf(s); err != nil {
		return nil, err
	}
	return c.documents.Search(ctx, query)
}

func (c *ChatService) GetPlugins(_ context.Context) []domain.PluginInfo {
	return c.plugins.Infos()
}

// outgoing runs the loaded plugins over a chat text.
func (c *ChatService) outgoing(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: empty message", errors.ErrInvalidArgument)
	}
	return c.plugins.ProcessMessage(text), nil
}

func identityOf(s *runtime.Session) (domain.Username, error) {
	switch s.State() {
	case domain.Closed:
		return "", errors.ErrSessionClosed
	case domain.Anonymous:
		return "", errors.ErrNotAuthenticated
	}
	identity, ok := s.Identity()
	if !ok {
		return "", errors.ErrNotAuthenticated
	}
	return identity, nil
}
