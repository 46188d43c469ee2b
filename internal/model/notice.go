package model

// NoticeLevel は一時通知の表示スタイルを表す。
type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notice はユーザーに表示する一時通知。
type Notice struct {
	Level   NoticeLevel
	Message string
}
