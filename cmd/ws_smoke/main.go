// ws_smoke drives a running server: it seeds two accounts, opens the target's
// socket and steals until a notification arrives.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"ton_miner/internal/db"
	"ton_miner/internal/domain"
	"ton_miner/internal/logger"
	"ton_miner/internal/repository"
	"ton_miner/internal/service"
	"ton_miner/internal/ws"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

const (
	attackerID = 3001
	targetID   = 3002
)

func main() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		logger.Fatal("DATABASE_URL not set")
	}
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	ctx := context.Background()
	pool := db.Connect(ctx, dsn)
	defer pool.Close()

	store := repository.NewAccountRepository(pool)
	svc := service.New(service.Deps{Store: store}, service.AccountOptions{StartingDiamonds: 10})
	for _, id := range []int64{attackerID, targetID} {
		if _, _, err := svc.Accounts.Register(ctx, id, fmt.Sprintf("smoke%d", id), nil); err != nil {
			logger.Fatal("register", "id", id, "error", err)
		}
	}
	// give the target something to lose
	if err := store.Apply(ctx, domain.AccountMutation{AccountID: targetID, Mutation: domain.Mutation{
		Balance: decimal.NewFromInt(1000),
	}}); err != nil {
		logger.Fatal("seed balance", "error", err)
	}

	// use 127.0.0.1 to prefer IPv4 (avoid resolving to [::1])
	base := "127.0.0.1:" + port
	conn, _, err := websocket.DefaultDialer.Dial(fmt.Sprintf("ws://%s/ws?userId=%d", base, targetID), nil)
	if err != nil {
		logger.Fatal("dial", "error", err)
	}
	defer conn.Close()

	if env := read(conn); env.Type != ws.MsgReady {
		logger.Fatal("expected ready", "got", env.Type)
	}

	for attempt := 1; attempt <= 10; attempt++ {
		out, err := steal(base)
		if err != nil {
			logger.Fatal("steal", "error", err)
		}
		logger.Info("steal", "attempt", attempt, "success", out.Success, "amount", out.Amount.String())
		if !out.Transferred() {
			continue
		}
		env := read(conn)
		if env.Type != ws.MsgNotification {
			logger.Fatal("expected notification", "got", env.Type)
		}
		logger.Info("notification received", "message", env.Message)
		return
	}
	logger.Fatal("no successful steal in 10 attempts")
}

func read(conn *websocket.Conn) ws.Envelope {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var env ws.Envelope
	if err := conn.ReadJSON(&env); err != nil {
		logger.Fatal("read", "error", err)
	}
	return env
}

func steal(base string) (*service.StealOutcome, error) {
	body, _ := json.Marshal(map[string]int64{"userId": attackerID, "targetUserId": targetID})
	resp, err := http.Post("http://"+base+"/api/steal", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	var out service.StealOutcome
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}
