package jobs

// TaskTypeDiscardMedia は孤立したメディアを削除するタスクです。
const TaskTypeDiscardMedia = "media:discard"

// QueueMedia はメディア関連タスクのキュー名です。
const QueueMedia = "media"

// DiscardPayload は media:discard タスクのペイロードです。
type DiscardPayload struct {
	Keys []string `json:"keys"`
}
