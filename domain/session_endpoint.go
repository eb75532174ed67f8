package domain

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

type RoomID string

func (id RoomID) IsEmpty() bool {
	return id == ""
}

// LobbyTopic はマッチメイキング要求が集まるトピックです。
const LobbyTopic = Topic("lobby")

func SessionTopic(id SessionID) Topic {
	return Topic("session:" + id.String())
}

func AssignTopic(id SessionID) Topic {
	return Topic("assign:" + id.String())
}

func RoomTopic(id RoomID) Topic {
	return Topic("room:" + string(id))
}

var (
	// ErrBackpressure は書き込みチャネルが満杯の場合に返されるエラーです。
	ErrBackpressure = errors.New("write channel is full, apply backpressure")
	// ErrInitializationFailed はセッションエンドポイントの初期化に失敗した場合に返されるエラーです。
	ErrInitializationFailed = errors.New("failed to initialize session endpoint")
)

// SessionEndpoint は1接続の読み書きループを持ち、
// JSONエンベロープをロビーまたはルームのトピックへ振り分けます。
type SessionEndpoint struct {
	ctx    context.Context
	cancel context.CancelFunc

	session    *Session
	connection *Connection
	pubsub     PubSub
	roomID     RoomID // 実行時にロビーからAssignTopic経由で割り当てられる

	idleTimeout  time.Duration
	pingInterval time.Duration

	ctrlCh  chan endpointEvent // 制御用チャネル
	writeCh chan []byte        // 書き込み用チャネル

	// lifecycle
	closed atomic.Bool
}

func NewSessionEndpoint(session *Session, connection *Connection, pubsub PubSub) (*SessionEndpoint, error) {
	if session == nil {
		return nil, ErrInitializationFailed
	}
	if connection == nil {
		return nil, ErrInitializationFailed
	}
	if pubsub == nil {
		return nil, ErrInitializationFailed
	}
	ctx, cancel := context.WithCancel(context.Background())
	se := &SessionEndpoint{
		ctx:          ctx,
		cancel:       cancel,
		session:      session,
		connection:   connection,
		pubsub:       pubsub,
		idleTimeout:  30 * time.Second,
		pingInterval: 10 * time.Second,
		ctrlCh:       make(chan endpointEvent, 16),
		writeCh:      make(chan []byte, 1024),
	}
	return se, nil
}

func (se *SessionEndpoint) Run() error {
	// 自分宛のメッセージを購読
	msgCh := se.pubsub.Subscribe(SessionTopic(se.session.ID()))
	defer se.pubsub.Unsubscribe(SessionTopic(se.session.ID()), msgCh)

	// ルーム割り当て通知を購読
	assignCh := se.pubsub.Subscribe(AssignTopic(se.session.ID()))
	defer se.pubsub.Unsubscribe(AssignTopic(se.session.ID()), assignCh)

	eg, ctx := errgroup.WithContext(se.ctx)
	eg.Go(func() error {
		se.ownerLoop(ctx, assignCh)
		return nil
	})
	eg.Go(func() error {
		se.readLoop(ctx)
		return nil
	})
	eg.Go(func() error {
		se.writeLoop(ctx)
		return nil
	})
	eg.Go(func() error {
		se.subscribeLoop(ctx, msgCh)
		return nil
	})
	eg.Go(func() error {
		NewHeartbeatService(se.pingInterval, se.session, se.writeCh).Run(ctx)
		return nil
	})

	if err := eg.Wait(); err != nil {
		return err
	}
	return nil
}

func (se *SessionEndpoint) Send(data []byte) error {
	select {
	case se.writeCh <- data:
		return nil
	default:
		return ErrBackpressure
	}
}

func (se *SessionEndpoint) Close(ctx context.Context) {
	se.sendCtrlEvent(ctx, endpointEvent{kind: evClose})
}

func (se *SessionEndpoint) ForceClose() {
	se.close()
}

// ownerLoop は論理セッションの状態を監視し、ルーム割り当てと終了を処理します。
func (se *SessionEndpoint) ownerLoop(ctx context.Context, assignCh <-chan Message) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-se.ctrlCh:
			se.handleControlEvent(ctx, ev)
		case msg, ok := <-assignCh:
			if !ok {
				return
			}
			se.handleControlEvent(ctx, endpointEvent{kind: evAssign, roomID: RoomID(msg.Data)})
		case <-ticker.C:
			ok, reason := se.session.IsIdle(se.idleTimeout)
			if ok {
				se.handleControlEvent(ctx, endpointEvent{
					kind: evClose,
					err:  errors.New(reason.String()),
				})
			}
		}
	}
}

func (se *SessionEndpoint) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			data, err := se.connection.Read(ctx)
			if err != nil {
				se.sendCtrlEvent(ctx, endpointEvent{kind: evClose, err: err})
				return
			}
			se.session.TouchRead()
			se.handleData(ctx, data)
		}
	}
}

func (se *SessionEndpoint) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-se.writeCh:
			err := se.connection.Write(ctx, data)
			if err != nil {
				se.sendCtrlEvent(ctx, endpointEvent{kind: evClose, err: err})
				return
			}
			se.session.TouchWrite()
		}
	}
}

// subscribeLoop はpubsubからのメッセージをwriteChに転送します。
func (se *SessionEndpoint) subscribeLoop(ctx context.Context, msgCh <-chan Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgCh:
			if !ok {
				return
			}
			select {
			case se.writeCh <- msg.Data:
				// 送信成功
			default:
				slog.Warn("subscribeLoop: writeCh full, message dropped", "sessionID", se.session.ID())
			}
		}
	}
}

func (se *SessionEndpoint) close() {
	if !se.closed.CompareAndSwap(false, true) {
		return
	}
	// ルーム在室中の切断は相手側の没収勝ちにつながるため、必ず離脱を通知する
	if !se.roomID.IsEmpty() {
		se.pubsub.Publish(context.Background(), RoomTopic(se.roomID), Message{
			SessionID: se.session.ID(),
			Data:      EncodeLeave(se.session.Nickname()),
		})
	}
	se.cancel()
	se.session.Close()
	se.connection.Close()
}

// handleData は受信エンベロープをtypeで判別し、宛先トピックへ振り分けます。
func (se *SessionEndpoint) handleData(ctx context.Context, data []byte) {
	msgType, err := PeekType(data)
	if err != nil {
		slog.WarnContext(ctx, "failed to parse envelope", "err", err)
		return
	}

	switch msgType {
	case MsgJoin, MsgLeave:
		if msgType == MsgJoin {
			var join Join
			if err := json.Unmarshal(data, &join); err == nil {
				se.session.SetNickname(join.Nickname)
			}
		}
		se.pubsub.Publish(ctx, LobbyTopic, Message{
			SessionID: se.session.ID(),
			Data:      data,
		})
	case MsgGameUpdate, MsgGameOver, MsgTournamentGameOver, MsgHostAnnounce:
		if se.roomID.IsEmpty() {
			slog.WarnContext(ctx, "received match message before room assignment", "sessionID", se.session.ID(), "msgType", msgType)
			return
		}
		se.pubsub.Publish(ctx, RoomTopic(se.roomID), Message{
			SessionID: se.session.ID(),
			Data:      data,
		})
	case MsgPong:
		se.sendCtrlEvent(ctx, endpointEvent{kind: evPong})
	case MsgPing:
		if err := se.Send(EncodePong()); err != nil {
			slog.WarnContext(ctx, "failed to respond pong", "sessionID", se.session.ID(), "err", err)
		}
	case MsgStartGame, MsgTournamentUpdate:
		// サーバー発のメッセージ。ピアから受信するのは不正
		slog.WarnContext(ctx, "unexpected server-origin message from peer", "msgType", msgType)
	default:
		slog.WarnContext(ctx, "unknown message type", "msgType", msgType)
	}
}

// handleControlEvent は制御チャネルからのイベントを処理し論理セッションの状態を更新する唯一の関数です。
func (se *SessionEndpoint) handleControlEvent(ctx context.Context, ev endpointEvent) {
	switch ev.kind {
	case evClose:
		se.close()
	case evPong:
		se.session.TouchPong()
	case evAssign:
		se.roomID = ev.roomID
		slog.InfoContext(ctx, "session assigned to room", "sessionID", se.session.ID(), "roomID", ev.roomID)
	default:
		slog.WarnContext(ctx, "unknown endpoint event kind", "kind", ev.kind)
	}
}

func (se *SessionEndpoint) sendCtrlEvent(ctx context.Context, ev endpointEvent) {
	select {
	case se.ctrlCh <- ev:
	case <-ctx.Done():
	}
}
