package app

import (
	"fmt"
	"strings"
)

// Command はpatientadminバイナリのサブコマンド。
type Command string

const (
	// CommandServe は管理画面サーバーを起動する。引数省略時の既定。
	CommandServe Command = "serve"
	// CommandWorker は期限切れセッションの削除ジョブを起動する。
	CommandWorker Command = "worker"
	// CommandMigrate はuser_profiles・sessionsのスキーマを最新にする。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck は起動中のサーバーの/healthを確認する。
	// distrolessイメージにはcurlが無いため、DockerのHEALTHCHECKから使う。
	CommandHealthcheck Command = "healthcheck"
)

// commands は受け付けるサブコマンドの一覧（usage表示順）。
var commands = []Command{CommandServe, CommandWorker, CommandMigrate, CommandHealthcheck}

// ParseCommand は先頭の引数からサブコマンドを決める。
// 引数が無い場合はserveとし、未知のサブコマンドはエラーにする。
// 2番目以降の引数は無視する。
func ParseCommand(args []string) (Command, error) {
	if len(args) == 0 || args[0] == "" {
		return CommandServe, nil
	}

	for _, c := range commands {
		if args[0] == string(c) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown command %q (usage: patientadmin [%s])", args[0], usage())
}

func usage() string {
	names := make([]string, len(commands))
	for i, c := range commands {
		names[i] = string(c)
	}
	return strings.Join(names, "|")
}
