// Command-line client for a lingo chat server
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"lingo/lingo/utils/color"
	httputils "lingo/lingo/utils/http"
	"lingo/lingo/utils/types"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

type inbound struct {
	Event string         `json:"event"`
	Data  types.Response `json:"data"`
}

func main() {
	args := os.Args[1:]
	if len(args) < 3 || args[0] != "connect" {
		fmt.Println("Lingo CLI usage:")
		fmt.Println("  lingo connect <server-url> <username>   # e.g. lingo connect http://localhost:8000 ana")
		os.Exit(1)
	}
	server, username := strings.TrimRight(args[1], "/"), args[2]

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	var login types.LoginResponse
	err := httputils.PostJSON(ctx, http.DefaultClient, server+"/auth/login",
		types.LoginRequest{Username: username}, &login)
	cancel()
	if err != nil {
		fmt.Println(color.ColorError("login failed: " + err.Error()))
		os.Exit(1)
	}

	wsURL, err := url.Parse(server)
	if err != nil {
		fmt.Println(color.ColorError("bad server url: " + err.Error()))
		os.Exit(1)
	}
	wsURL.Scheme = strings.Replace(wsURL.Scheme, "http", "ws", 1)
	wsURL.Path = "/ws"
	wsURL.RawQuery = url.Values{"token": {login.Token}, "userId": {fmt.Sprint(login.UserID)}}.Encode()

	ctx, cancel = context.WithCancel(context.Background())
	defer cancel()
	conn, _, err := websocket.Dial(ctx, wsURL.String(), nil)
	if err != nil {
		fmt.Println(color.ColorError("dial failed: " + err.Error()))
		os.Exit(1)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	fmt.Println(color.ColorInfo(fmt.Sprintf("connected as %s (user %d). Type a message or 'exit' to quit.", username, login.UserID)))
	go printEvents(ctx, conn, cancel)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "exit" || line == "quit" {
			break
		}
		if line == "" {
			continue
		}
		frame := types.Frame{Event: types.EventGroupTranslateEnMessage, Data: map[string]any{"content": line}}
		if err := wsjson.Write(ctx, conn, frame); err != nil {
			fmt.Println(color.ColorError("send failed: " + err.Error()))
			return
		}
	}
}

// printEvents renders server frames until the connection drops. Translation
// updates carry the whole text so far; repeats of the same text are skipped.
func printEvents(ctx context.Context, conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	latest := map[string]string{}
	for {
		var in inbound
		if err := wsjson.Read(ctx, conn, &in); err != nil {
			if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
				fmt.Println(color.ColorError("connection lost: " + err.Error()))
			}
			return
		}
		switch in.Event {
		case types.EventUserOnline, types.EventUserOffline:
			fmt.Println(color.ColorPresence(fmt.Sprintf("* user %v %s", in.Data.Data, strings.TrimPrefix(in.Event, "user"))))
		case types.EventException:
			msg := ""
			if in.Data.Msg != nil {
				msg = *in.Data.Msg
			}
			fmt.Println(color.ColorError("! " + msg))
		case types.EventGroupTranslateMessage:
			renderChat(in.Data.Data, latest)
		}
	}
}

func renderChat(data any, latest map[string]string) {
	raw, err := json.Marshal(data)
	if err != nil {
		return
	}
	var msg struct {
		ID       string  `json:"id"`
		Username string  `json:"username"`
		Content  *string `json:"content"`
		TContent *string `json:"tContent"`
	}
	if err := json.Unmarshal(raw, &msg); err != nil {
		return
	}
	switch {
	case msg.Content != nil:
		fmt.Printf("%s %s\n", color.ColorSpeaker(msg.Username+":"), *msg.Content)
	case msg.TContent != nil:
		if latest[msg.ID] == *msg.TContent {
			return
		}
		latest[msg.ID] = *msg.TContent
		fmt.Printf("%s %s\n", color.ColorPrompt("  ->"), color.ColorTranslation(*msg.TContent))
	}
}
