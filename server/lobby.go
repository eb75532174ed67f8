package server

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"volley/auth"
	"volley/domain"
	"volley/match"
	"volley/tournament"
)

const defaultRounds = 3

// Lobby はマッチメイキングを担当します。
// join要求を検証して待機列に積み、2人そろったらルームを立てます。
// tournamentSizeが2以上なら、その人数がそろうまで待ってトーナメントを開始します。
type Lobby struct {
	pubsub         domain.PubSub
	verifier       *auth.Verifier
	queue          *match.Queue
	tournamentSize int

	resultCh chan RoomResult

	// トーナメント進行状態。同時に1つだけ動きます。
	tour           *tournament.Tournament
	entrants       map[string]match.QueueEntry // ニックネーム -> エントリ
	currentMatchID string
	tourRounds     int
}

func NewLobby(pubsub domain.PubSub, verifier *auth.Verifier, tournamentSize int) *Lobby {
	return &Lobby{
		pubsub:         pubsub,
		verifier:       verifier,
		queue:          match.NewQueue(),
		tournamentSize: tournamentSize,
		resultCh:       make(chan RoomResult, 16),
	}
}

func (l *Lobby) Run(ctx context.Context) error {
	msgCh := l.pubsub.Subscribe(domain.LobbyTopic)
	defer l.pubsub.Unsubscribe(domain.LobbyTopic, msgCh)

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgCh:
			if !ok {
				return nil
			}
			l.handleLobbyMessage(ctx, msg)
		case res := <-l.resultCh:
			l.handleResult(ctx, res)
		}
	}
}

func (l *Lobby) handleLobbyMessage(ctx context.Context, msg domain.Message) {
	v, err := domain.Decode(msg.Data)
	if err != nil {
		slog.WarnContext(ctx, "undecodable lobby message", "sessionID", msg.SessionID, "err", err)
		return
	}
	switch m := v.(type) {
	case *domain.Join:
		l.handleJoin(ctx, msg.SessionID, m)
	case *domain.Leave:
		if l.queue.Remove(msg.SessionID) {
			slog.InfoContext(ctx, "left waiting list", "sessionID", msg.SessionID)
		}
	default:
		slog.WarnContext(ctx, "unexpected lobby message", "sessionID", msg.SessionID)
	}
}

func (l *Lobby) handleJoin(ctx context.Context, sessionID domain.SessionID, join *domain.Join) {
	claims, err := l.verifier.Verify(join.Token)
	if err != nil {
		slog.WarnContext(ctx, "join rejected", "sessionID", sessionID, "err", err)
		return
	}
	entry := match.QueueEntry{
		SessionID: sessionID,
		Nickname:  claims.Nickname,
		Token:     join.Token,
		Rounds:    join.Rounds,
	}
	if err := l.queue.Add(entry); err != nil {
		if errors.Is(err, match.ErrAlreadyQueued) {
			slog.WarnContext(ctx, "duplicate join ignored", "sessionID", sessionID)
			return
		}
		slog.ErrorContext(ctx, "enqueue failed", "sessionID", sessionID, "err", err)
		return
	}
	slog.InfoContext(ctx, "joined waiting list", "sessionID", sessionID, "nickname", claims.Nickname, "queued", l.queue.Len())
	l.tryMatch(ctx)
}

func (l *Lobby) tryMatch(ctx context.Context) {
	if l.tournamentSize >= 2 {
		// トーナメント進行中は次の開催を待たせる
		if l.tour != nil {
			return
		}
		entries, ok := l.queue.PopN(l.tournamentSize)
		if !ok {
			return
		}
		l.startTournament(ctx, entries)
		return
	}
	for {
		a, b, ok := l.queue.PopPair()
		if !ok {
			return
		}
		l.startMatch(ctx, a, b, false)
	}
}

// startMatch はルームを立てて両ピアに割り当てを通知します。
// ラウンド数は先着側の希望を採用します。
func (l *Lobby) startMatch(ctx context.Context, a, b match.QueueEntry, isTournament bool) domain.RoomID {
	roomID := domain.RoomID(uuid.NewString())
	rounds := a.Rounds
	if rounds <= 0 {
		rounds = defaultRounds
	}
	if isTournament && l.tourRounds > 0 {
		rounds = l.tourRounds
	}

	left := Peer{SessionID: a.SessionID, Nickname: a.Nickname, Side: domain.SideLeft}
	right := Peer{SessionID: b.SessionID, Nickname: b.Nickname, Side: domain.SideRight}
	room := NewMatchRoom(roomID, l.pubsub, left, right, isTournament, l.resultCh)
	go func() {
		if err := room.Run(ctx); err != nil {
			slog.ErrorContext(ctx, "room error", "roomID", roomID, "err", err)
		}
	}()

	// 割り当てを先に届けてからstart_gameを流す
	l.pubsub.Publish(ctx, domain.AssignTopic(a.SessionID), domain.Message{Data: []byte(roomID)})
	l.pubsub.Publish(ctx, domain.AssignTopic(b.SessionID), domain.Message{Data: []byte(roomID)})
	l.pubsub.Publish(ctx, domain.SessionTopic(a.SessionID), domain.Message{
		Data: domain.EncodeStartGame(rounds, domain.SideLeft, b.Nickname, string(roomID), isTournament),
	})
	l.pubsub.Publish(ctx, domain.SessionTopic(b.SessionID), domain.Message{
		Data: domain.EncodeStartGame(rounds, domain.SideRight, a.Nickname, string(roomID), isTournament),
	})
	slog.InfoContext(ctx, "match started", "roomID", roomID, "left", a.Nickname, "right", b.Nickname, "rounds", rounds, "tournament", isTournament)
	return roomID
}

func (l *Lobby) startTournament(ctx context.Context, entries []match.QueueEntry) {
	names := make([]string, len(entries))
	entrants := make(map[string]match.QueueEntry, len(entries))
	rounds := defaultRounds
	for i, e := range entries {
		names[i] = e.Nickname
		entrants[e.Nickname] = e
		if i == 0 && e.Rounds > 0 {
			rounds = e.Rounds
		}
	}
	tour, err := tournament.New(names)
	if err != nil {
		slog.ErrorContext(ctx, "tournament creation failed", "err", err)
		return
	}
	l.tour = tour
	l.entrants = entrants
	l.tourRounds = rounds
	slog.InfoContext(ctx, "tournament started", "id", tour.ID(), "players", names)

	l.broadcastTournament(ctx)
	l.startNextTournamentMatch(ctx)
}

func (l *Lobby) startNextTournamentMatch(ctx context.Context) {
	m, err := l.tour.StartNext()
	if err != nil {
		if errors.Is(err, tournament.ErrNoReadyMatch) && l.tour.IsComplete() {
			l.finishTournament(ctx)
			return
		}
		slog.ErrorContext(ctx, "tournament cannot progress", "err", err)
		return
	}
	p1, ok1 := l.entrants[m.Player1]
	p2, ok2 := l.entrants[m.Player2]
	if !ok1 || !ok2 {
		slog.ErrorContext(ctx, "tournament entrant missing", "match", m.ID)
		return
	}
	l.currentMatchID = m.ID
	l.broadcastTournament(ctx)
	l.startMatch(ctx, p1, p2, true)
}

func (l *Lobby) handleResult(ctx context.Context, res RoomResult) {
	slog.InfoContext(ctx, "match finished", "roomID", res.RoomID, "winner", res.Winner, "forfeit", res.Forfeit)
	if !res.Tournament || l.tour == nil {
		return
	}
	if err := l.tour.RecordResult(l.currentMatchID, res.Winner); err != nil {
		slog.ErrorContext(ctx, "failed to record tournament result", "match", l.currentMatchID, "winner", res.Winner, "err", err)
		return
	}
	l.currentMatchID = ""
	if l.tour.IsComplete() {
		l.finishTournament(ctx)
		return
	}
	l.startNextTournamentMatch(ctx)
}

func (l *Lobby) finishTournament(ctx context.Context) {
	l.broadcastTournament(ctx)
	if champ, ok := l.tour.Champion(); ok {
		slog.InfoContext(ctx, "tournament complete", "id", l.tour.ID(), "champion", champ)
	}
	l.tour = nil
	l.entrants = nil
	l.currentMatchID = ""
	l.tourRounds = 0
	// 待機中の次回エントリーがそろっていれば続けて開催する
	l.tryMatch(ctx)
}

// broadcastTournament は全体スナップショットを全エントラントへ配ります。
// 受信側は差分適用せず丸ごと置き換えます。
func (l *Lobby) broadcastTournament(ctx context.Context) {
	raw, err := l.tour.MarshalSnapshot()
	if err != nil {
		slog.ErrorContext(ctx, "failed to marshal tournament snapshot", "err", err)
		return
	}
	data := domain.EncodeTournamentUpdate(raw)
	for _, e := range l.entrants {
		l.pubsub.Publish(ctx, domain.SessionTopic(e.SessionID), domain.Message{Data: data})
	}
}
