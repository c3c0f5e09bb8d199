package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/xaenox/gideon-bot/internal/github"
	"github.com/xaenox/gideon-bot/internal/models"
	"github.com/xaenox/gideon-bot/internal/storage"
)

// --- Mock Discord session ---

type mockSession struct {
	mu       sync.Mutex
	sent     []sentMessage
	sendErr  error
	channels map[string]*discordgo.Channel

	events    []*discordgo.GuildScheduledEvent
	listErr   error
	created   []*discordgo.GuildScheduledEventParams
	createErr error
	edited    []eventEdit
	editErr   error
	deleted   []string
	deleteErr error
}

type sentMessage struct {
	channelID string
	content   string
}

type eventEdit struct {
	eventID string
	params  *discordgo.GuildScheduledEventParams
}

func newMockSession() *mockSession {
	return &mockSession{channels: make(map[string]*discordgo.Channel)}
}

func (m *mockSession) Open() error                           { return nil }
func (m *mockSession) Close() error                          { return nil }
func (m *mockSession) AddHandler(handler interface{}) func() { return func() {} }

func (m *mockSession) Channel(channelID string) (*discordgo.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ch, ok := m.channels[channelID]; ok {
		return ch, nil
	}
	return nil, errors.New("unknown channel")
}

func (m *mockSession) ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return nil, m.sendErr
	}
	m.sent = append(m.sent, sentMessage{channelID: channelID, content: content})
	return &discordgo.Message{ID: "sent"}, nil
}

func (m *mockSession) GuildScheduledEvents(guildID string, userCount bool, options ...discordgo.RequestOption) ([]*discordgo.GuildScheduledEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.events, nil
}

func (m *mockSession) GuildScheduledEventCreate(guildID string, event *discordgo.GuildScheduledEventParams, options ...discordgo.RequestOption) (*discordgo.GuildScheduledEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.created = append(m.created, event)
	created := &discordgo.GuildScheduledEvent{ID: "ev-new", Name: event.Name}
	if event.ScheduledStartTime != nil {
		created.ScheduledStartTime = *event.ScheduledStartTime
	}
	return created, nil
}

func (m *mockSession) GuildScheduledEventEdit(guildID, eventID string, event *discordgo.GuildScheduledEventParams, options ...discordgo.RequestOption) (*discordgo.GuildScheduledEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.editErr != nil {
		return nil, m.editErr
	}
	m.edited = append(m.edited, eventEdit{eventID: eventID, params: event})
	return &discordgo.GuildScheduledEvent{ID: eventID, Name: event.Name}, nil
}

func (m *mockSession) GuildScheduledEventDelete(guildID, eventID string, options ...discordgo.RequestOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, eventID)
	return nil
}

func (m *mockSession) sentContents() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.sent))
	for i, s := range m.sent {
		out[i] = s.content
	}
	return out
}

// --- Fake completer ---

type fakeCompleter struct {
	response string
	calls    int
}

func (f *fakeCompleter) Complete(_ context.Context, _ string, _ []string, _ []models.ConversationTurn, _ models.Persona, _ string) string {
	f.calls++
	return f.response
}

// --- Helpers ---

const (
	testMainChannel = "100"
	testGuild       = "guild-1"
	testBotID       = "bot-1"
)

func newTestBot(t *testing.T, sess *mockSession, completer Completer) *Bot {
	t.Helper()
	b, err := New(Options{
		MainChannelID: testMainChannel,
		Aliases:       []string{"gideon"},
		Session:       sess,
	}, storage.NewMemoryStorage(), completer, zap.NewNop())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	b.setSelf(testBotID, "Gideon")
	return b
}

func inbound(content string) models.InboundMessage {
	return models.InboundMessage{
		ID:          "msg-1",
		AuthorID:    "user-1",
		AuthorName:  "alice",
		Content:     content,
		ChannelID:   testMainChannel,
		ChannelName: "general",
		GuildID:     testGuild,
	}
}

// --- Tests ---

func TestBotAuthoredMessageSendsNothing(t *testing.T) {
	sess := newMockSession()
	completer := &fakeCompleter{response: "should never be used"}
	b := newTestBot(t, sess, completer)

	msg := inbound("hello")
	msg.AuthorIsBot = true
	b.dispatch(context.Background(), msg)

	if completer.calls != 0 {
		t.Error("completion endpoint called for a bot-authored message")
	}
	if len(sess.sentContents()) != 0 {
		t.Errorf("sent %v, want nothing", sess.sentContents())
	}
}

func TestSilenceSendsNothing(t *testing.T) {
	sess := newMockSession()
	b := newTestBot(t, sess, &fakeCompleter{response: "NO_REPLY"})

	b.dispatch(context.Background(), inbound("talking to someone else"))

	if len(sess.sentContents()) != 0 {
		t.Errorf("sent %v, want nothing for silence", sess.sentContents())
	}
}

func TestReplySentVerbatimAndRecorded(t *testing.T) {
	sess := newMockSession()
	b := newTestBot(t, sess, &fakeCompleter{response: "Here is your answer."})

	b.dispatch(context.Background(), inbound("what's the answer?"))

	sent := sess.sentContents()
	if len(sent) != 1 || sent[0] != "Here is your answer." {
		t.Fatalf("sent %v, want the completion text verbatim", sent)
	}

	turns, err := b.store.RecentTurns(context.Background(), testMainChannel, 10)
	if err != nil {
		t.Fatalf("RecentTurns returned error: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("recorded %d turns, want user + assistant", len(turns))
	}
	if turns[0].Role != models.RoleUser || turns[1].Role != models.RoleAssistant {
		t.Errorf("turn roles = %q, %q", turns[0].Role, turns[1].Role)
	}
}

func TestLongReplyTruncatedOnRuneBoundary(t *testing.T) {
	sess := newMockSession()
	long := strings.Repeat("héllo wörld ", 300) // well past the message limit
	b := newTestBot(t, sess, &fakeCompleter{response: long})

	b.dispatch(context.Background(), inbound("tell me everything"))

	sent := sess.sentContents()
	if len(sent) != 1 {
		t.Fatalf("sent %v, want one message", sent)
	}
	if got := utf8.RuneCountInString(sent[0]); got != maxMessageLen {
		t.Errorf("sent %d characters, want %d", got, maxMessageLen)
	}
	if !utf8.ValidString(sent[0]) {
		t.Error("truncation split a rune")
	}
}

func TestPullRequestShortCircuit(t *testing.T) {
	sess := newMockSession()
	completer := &fakeCompleter{response: "unused"}
	b := newTestBot(t, sess, completer)

	b.dispatch(context.Background(), inbound("please open a pull request for this"))

	if completer.calls != 0 {
		t.Error("completion endpoint called despite the short-circuit")
	}
	sent := sess.sentContents()
	if len(sent) != 1 || sent[0] != prUnavailableReply {
		t.Errorf("sent %v, want the canned reply", sent)
	}
}

type fakePRLister struct {
	prs []github.PullRequest
}

func (f *fakePRLister) ListPullRequests(_ context.Context, owner, repo, state string) []github.PullRequest {
	return f.prs
}

func TestPullRequestReplyListsOpenPRsWhenConfigured(t *testing.T) {
	sess := newMockSession()
	b := newTestBot(t, sess, &fakeCompleter{response: "unused"})
	b.github = &fakePRLister{prs: []github.PullRequest{
		{Number: 7, Title: "Fix the thing", URL: "https://example.com/pr/7", User: "alice"},
	}}
	b.githubRepo = "acme/widgets"

	b.dispatch(context.Background(), inbound("can you create a pr for that?"))

	sent := sess.sentContents()
	if len(sent) != 1 {
		t.Fatalf("sent %v, want one reply", sent)
	}
	if !strings.Contains(sent[0], prUnavailableReply) || !strings.Contains(sent[0], "#7 Fix the thing") {
		t.Errorf("reply = %q, want the canned text plus the open PR listing", sent[0])
	}
}

func TestScheduleCreatesExternalEventWithOneHourDuration(t *testing.T) {
	sess := newMockSession()
	sess.channels[testMainChannel] = &discordgo.Channel{
		ID:   testMainChannel,
		Name: "general",
		Type: discordgo.ChannelTypeGuildText,
	}
	response := `[SCHEDULE_EVENT] {"title":"Standup","description":"Daily sync","datetime":"2099-01-01T09:00:00","timezone":"Europe/Brussels"} [/SCHEDULE_EVENT]`
	b := newTestBot(t, sess, &fakeCompleter{response: response})

	b.dispatch(context.Background(), inbound("schedule the standup"))

	if len(sess.created) != 1 {
		t.Fatalf("created %d events, want exactly one", len(sess.created))
	}
	params := sess.created[0]
	if params.Name != "Standup" {
		t.Errorf("event name = %q", params.Name)
	}
	if params.EntityType != discordgo.GuildScheduledEventEntityTypeExternal {
		t.Errorf("entity type = %v, want external", params.EntityType)
	}
	brussels, _ := time.LoadLocation("Europe/Brussels")
	wantStart := time.Date(2099, 1, 1, 9, 0, 0, 0, brussels)
	if params.ScheduledStartTime == nil || !params.ScheduledStartTime.Equal(wantStart) {
		t.Errorf("start = %v, want %v", params.ScheduledStartTime, wantStart)
	}
	if params.ScheduledEndTime == nil || !params.ScheduledEndTime.Equal(wantStart.Add(time.Hour)) {
		t.Errorf("end = %v, want start + 1h", params.ScheduledEndTime)
	}

	sent := sess.sentContents()
	if len(sent) != 1 || !strings.Contains(sent[0], "Standup") {
		t.Errorf("sent %v, want one confirmation", sent)
	}
}

func TestScheduleInVoiceChannelBindsChannelWithoutEnd(t *testing.T) {
	sess := newMockSession()
	sess.channels[testMainChannel] = &discordgo.Channel{
		ID:   testMainChannel,
		Name: "war-room",
		Type: discordgo.ChannelTypeGuildVoice,
	}
	response := `[SCHEDULE_EVENT] {"title":"Sync","datetime":"2099-01-01T09:00:00","timezone":"UTC"} [/SCHEDULE_EVENT]`
	b := newTestBot(t, sess, &fakeCompleter{response: response})

	b.dispatch(context.Background(), inbound("schedule a sync here"))

	if len(sess.created) != 1 {
		t.Fatalf("created %d events, want one", len(sess.created))
	}
	params := sess.created[0]
	if params.EntityType != discordgo.GuildScheduledEventEntityTypeVoice {
		t.Errorf("entity type = %v, want voice", params.EntityType)
	}
	if params.ChannelID != testMainChannel {
		t.Errorf("channel id = %q, want the voice channel", params.ChannelID)
	}
	if params.ScheduledEndTime != nil {
		t.Errorf("end = %v, want none for voice events", params.ScheduledEndTime)
	}
}

func TestSchedulePastTimeRejectedBeforeAnyCall(t *testing.T) {
	sess := newMockSession()
	response := `[SCHEDULE_EVENT] {"title":"Standup","datetime":"2000-01-01T09:00:00","timezone":"UTC"} [/SCHEDULE_EVENT]`
	b := newTestBot(t, sess, &fakeCompleter{response: response})

	b.dispatch(context.Background(), inbound("schedule the standup"))

	if len(sess.created) != 0 {
		t.Errorf("created %d events, want none for a past time", len(sess.created))
	}
	sent := sess.sentContents()
	if len(sent) != 1 || sent[0] != pastTimeReply {
		t.Errorf("sent %v, want exactly the past-time rejection", sent)
	}
}

func TestCancelFallsBackToSingleEvent(t *testing.T) {
	sess := newMockSession()
	sess.events = []*discordgo.GuildScheduledEvent{
		{ID: "ev-1", Name: "Game night", ScheduledStartTime: time.Date(2099, 5, 1, 20, 0, 0, 0, time.UTC)},
	}
	response := `[CANCEL_EVENT] {"title":"the thing","datetime":""} [/CANCEL_EVENT]`
	b := newTestBot(t, sess, &fakeCompleter{response: response})

	b.dispatch(context.Background(), inbound("cancel the thing"))

	if len(sess.deleted) != 1 || sess.deleted[0] != "ev-1" {
		t.Fatalf("deleted %v, want the single event", sess.deleted)
	}
	sent := sess.sentContents()
	if len(sent) != 1 || !strings.Contains(sent[0], "Game night") {
		t.Errorf("sent %v, want one confirmation naming the event", sent)
	}
}

func TestCancelWithNoEventsReportsNotFound(t *testing.T) {
	sess := newMockSession()
	response := `[CANCEL_EVENT] {"title":"standup","datetime":""} [/CANCEL_EVENT]`
	b := newTestBot(t, sess, &fakeCompleter{response: response})

	b.dispatch(context.Background(), inbound("cancel the standup"))

	if len(sess.deleted) != 0 {
		t.Errorf("deleted %v, want nothing", sess.deleted)
	}
	sent := sess.sentContents()
	if len(sent) != 1 || sent[0] != noMatchingEventReply {
		t.Errorf("sent %v, want the not-found message", sent)
	}
}

func TestUpdateEditsResolvedEvent(t *testing.T) {
	sess := newMockSession()
	sess.events = []*discordgo.GuildScheduledEvent{
		{ID: "ev-1", Name: "Standup", ScheduledStartTime: time.Date(2099, 1, 1, 9, 0, 0, 0, time.UTC)},
		{ID: "ev-2", Name: "Retro", ScheduledStartTime: time.Date(2099, 1, 2, 9, 0, 0, 0, time.UTC)},
	}
	response := `[UPDATE_EVENT] {"title":"standup","datetime":"","fields_to_update":{"name":"Morning standup","datetime":"2099-01-03T10:00:00"}} [/UPDATE_EVENT]`
	b := newTestBot(t, sess, &fakeCompleter{response: response})

	b.dispatch(context.Background(), inbound("move the standup"))

	if len(sess.edited) != 1 {
		t.Fatalf("edited %d events, want one", len(sess.edited))
	}
	edit := sess.edited[0]
	if edit.eventID != "ev-1" {
		t.Errorf("edited %q, want the standup", edit.eventID)
	}
	if edit.params.Name != "Morning standup" {
		t.Errorf("new name = %q", edit.params.Name)
	}
	want := time.Date(2099, 1, 3, 10, 0, 0, 0, time.UTC)
	if edit.params.ScheduledStartTime == nil || !edit.params.ScheduledStartTime.Equal(want) {
		t.Errorf("new start = %v, want %v", edit.params.ScheduledStartTime, want)
	}
}

func TestUpdateDatetimeHonorsTimezoneField(t *testing.T) {
	sess := newMockSession()
	sess.events = []*discordgo.GuildScheduledEvent{
		{ID: "ev-1", Name: "Standup", ScheduledStartTime: time.Date(2099, 1, 1, 9, 0, 0, 0, time.UTC)},
	}
	response := `[UPDATE_EVENT] {"title":"standup","datetime":"","fields_to_update":{"datetime":"2099-01-03T10:00:00","timezone":"Europe/Brussels"}} [/UPDATE_EVENT]`
	b := newTestBot(t, sess, &fakeCompleter{response: response})

	b.dispatch(context.Background(), inbound("move the standup"))

	if len(sess.edited) != 1 {
		t.Fatalf("edited %d events, want one", len(sess.edited))
	}
	brussels, _ := time.LoadLocation("Europe/Brussels")
	want := time.Date(2099, 1, 3, 10, 0, 0, 0, brussels)
	got := sess.edited[0].params.ScheduledStartTime
	if got == nil || !got.Equal(want) {
		t.Errorf("new start = %v, want %v in the directive's timezone", got, want)
	}
}

func TestEventStoreFailureDegradesToOneMessage(t *testing.T) {
	sess := newMockSession()
	sess.createErr = errors.New("api down")
	response := `[SCHEDULE_EVENT] {"title":"Standup","datetime":"2099-01-01T09:00:00","timezone":"UTC"} [/SCHEDULE_EVENT]`
	b := newTestBot(t, sess, &fakeCompleter{response: response})

	b.dispatch(context.Background(), inbound("schedule the standup"))

	sent := sess.sentContents()
	if len(sent) != 1 || !strings.Contains(sent[0], "went wrong") {
		t.Errorf("sent %v, want exactly one error message", sent)
	}
}

func TestMalformedDirectiveBlockRepliesApology(t *testing.T) {
	sess := newMockSession()
	response := `[SCHEDULE_EVENT] {"title": broken [/SCHEDULE_EVENT]`
	b := newTestBot(t, sess, &fakeCompleter{response: response})

	b.dispatch(context.Background(), inbound("schedule the standup"))

	if len(sess.created) != 0 {
		t.Errorf("created %v, want nothing for a malformed block", sess.created)
	}
	sent := sess.sentContents()
	if len(sent) != 1 || !strings.Contains(sent[0], "Sorry") {
		t.Errorf("sent %v, want an apology reply", sent)
	}
}

func TestOutsideMainChannelWithoutCueIsFiltered(t *testing.T) {
	sess := newMockSession()
	completer := &fakeCompleter{response: "unused"}
	b := newTestBot(t, sess, completer)

	msg := inbound("hello everyone")
	msg.ChannelID = "999"
	b.dispatch(context.Background(), msg)

	if completer.calls != 0 || len(sess.sentContents()) != 0 {
		t.Error("unaddressed message outside the main channel reached the pipeline")
	}
}
