package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/coder/websocket"

	"volley/auth"
	"volley/domain"
	"volley/game"
	"volley/leaderboard"
	"volley/match"
	"volley/netsync"
	"volley/utils"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := utils.GetEnvDefault("ADDR", "localhost")
	port := utils.GetEnvDefault("PORT", "9090")
	secret := utils.GetEnvDefault("JOIN_SECRET", "dev-secret")
	botCountStr := utils.GetEnvDefault("BOT_COUNT", "2")
	botCount, err := strconv.Atoi(botCountStr)
	if err != nil {
		slog.Error("invalid BOT_COUNT", "value", botCountStr)
		os.Exit(1)
	}
	difficultyStr := utils.GetEnvDefault("DIFFICULTY", "0.7")
	difficulty, err := strconv.ParseFloat(difficultyStr, 64)
	if err != nil {
		slog.Error("invalid DIFFICULTY", "value", difficultyStr)
		os.Exit(1)
	}
	roundsStr := utils.GetEnvDefault("ROUNDS", "3")
	rounds, err := strconv.Atoi(roundsStr)
	if err != nil {
		slog.Error("invalid ROUNDS", "value", roundsStr)
		os.Exit(1)
	}

	var reporter leaderboard.Reporter = leaderboard.NopReporter{}
	if url := os.Getenv("LEADERBOARD_URL"); url != "" {
		reporter = leaderboard.NewHTTPReporter(url)
	}

	verifier := auth.NewVerifier([]byte(secret))
	serverURL := fmt.Sprintf("ws://%s:%s/ws", addr, port)
	slog.Info("starting bots", "count", botCount, "server", serverURL, "difficulty", difficulty)

	var wg sync.WaitGroup
	for i := range botCount {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			runBot(ctx, serverURL, id, verifier, reporter, difficulty, rounds)
		}(i)
	}

	wg.Wait()
	slog.Info("all bots stopped")
}

func runBot(ctx context.Context, serverURL string, id int, verifier *auth.Verifier, reporter leaderboard.Reporter, difficulty float64, rounds int) {
	logger := slog.With("botID", id)
	nickname := fmt.Sprintf("bot-%d", id)

	for {
		if ctx.Err() != nil {
			return
		}
		err := botSession(ctx, serverURL, logger, nickname, verifier, reporter, difficulty, rounds)
		if err != nil && ctx.Err() == nil {
			logger.Warn("bot session ended, reconnecting", "err", err)
			time.Sleep(2 * time.Second)
		}
	}
}

// wsSender は対戦相手宛の送信をリレー接続に流します。
type wsSender struct {
	conn *websocket.Conn
}

func (s *wsSender) Send(ctx context.Context, data []byte) error {
	return s.conn.Write(ctx, websocket.MessageText, data)
}

func botSession(ctx context.Context, serverURL string, logger *slog.Logger, nickname string, verifier *auth.Verifier, reporter leaderboard.Reporter, difficulty float64, rounds int) error {
	conn, _, err := websocket.Dial(ctx, serverURL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.CloseNow()

	token, err := verifier.Issue(nickname, time.Hour)
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}
	if err := conn.Write(ctx, websocket.MessageText, domain.EncodeJoin(nickname, token, rounds)); err != nil {
		return fmt.Errorf("send join: %w", err)
	}
	logger.Info("joined waiting list", "nickname", nickname)

	var mu sync.Mutex
	var runner *match.Runner

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		v, err := domain.Decode(data)
		if err != nil {
			logger.Warn("undecodable message", "err", err)
			continue
		}
		switch m := v.(type) {
		case *domain.StartGame:
			logger.Info("match assigned", "room", m.Room, "side", m.PlayerSide, "opponent", m.Opponent, "tournament", m.IsTournament)
			r, err := startBotMatch(ctx, logger, conn, m, nickname, token, difficulty, reporter)
			if err != nil {
				logger.Error("failed to start match", "err", err)
				continue
			}
			mu.Lock()
			runner = r
			mu.Unlock()
		case *domain.Control:
			if m.Type == domain.MsgPing {
				if err := conn.Write(ctx, websocket.MessageText, domain.EncodePong()); err != nil {
					return fmt.Errorf("send pong: %w", err)
				}
				continue
			}
			mu.Lock()
			r := runner
			mu.Unlock()
			if r != nil {
				r.Deliver(v)
			}
		case *domain.TournamentUpdate:
			logger.Info("tournament update received")
		default:
			mu.Lock()
			r := runner
			mu.Unlock()
			if r != nil {
				r.Deliver(v)
			}
		}
	}
}

func startBotMatch(ctx context.Context, logger *slog.Logger, conn *websocket.Conn, start *domain.StartGame, nickname, token string, difficulty float64, reporter leaderboard.Reporter) (*match.Runner, error) {
	cfg := game.DefaultConfig()
	if start.Rounds > 0 {
		cfg.Rounds = start.Rounds
	}
	seed := uint64(time.Now().UnixNano())

	session, err := match.NewSession(cfg, start.PlayerSide, seed, true, start.IsTournament)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	sender := &wsSender{conn: conn}
	ctrl := netsync.NewController(domain.NewSessionID(), start.PlayerSide, cfg.Width, sender, time.Now())
	rng := rand.New(rand.NewPCG(seed, seed<<1|1))
	ai := game.NewAIController(start.PlayerSide, difficulty, rng)

	runner := match.NewRunner(session).
		WithSync(ctrl, nil).
		WithAI(ai, start.PlayerSide)

	go func() {
		for ev := range runner.Events() {
			switch ev.Kind {
			case match.EventRound:
				logger.Info("round complete", "scorer", ev.Scorer, "score", ev.Score)
			case match.EventFinished:
				finishMatch(ctx, logger, conn, start, nickname, token, reporter, ev.Result)
			}
		}
	}()
	go func() {
		if err := runner.Run(ctx); err != nil {
			logger.Error("runner error", "err", err)
		}
	}()
	return runner, nil
}

// finishMatch は終了結果をリレーとリーダーボードへ報告します。
// 重複報告を避けるため、対戦結果のリレー報告は勝者側だけが行います。
func finishMatch(ctx context.Context, logger *slog.Logger, conn *websocket.Conn, start *domain.StartGame, nickname, token string, reporter leaderboard.Reporter, result *match.Result) {
	logger.Info("match finished", "score", result.Score, "winner", result.Winner, "reason", result.Reason)

	localWon := result.Winner == start.PlayerSide
	if localWon && result.Reason == match.FinishRoundTarget {
		var payload []byte
		if start.IsTournament {
			payload = domain.EncodeTournamentGameOver(result.Score, nickname)
		} else {
			payload = domain.EncodeGameOver(result.Score, nickname, false)
		}
		if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
			logger.Warn("failed to report game over", "err", err)
		}
	}

	localScore := result.Score.Left
	if start.PlayerSide == domain.SideRight {
		localScore = result.Score.Right
	}
	ack, err := reporter.Report(ctx, leaderboard.Report{
		Nickname:    nickname,
		Token:       token,
		Score:       localScore,
		TotalRounds: result.RoundsPlayed,
	})
	if err != nil {
		logger.Warn("leaderboard report failed", "err", err)
		return
	}
	if ack.Winner != "" {
		logger.Info("leaderboard updated", "leader", ack.Winner)
	}
}
