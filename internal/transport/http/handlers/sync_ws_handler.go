package handlers

import (
	"context"
	"reflect"
	"time"

	"github.com/gofiber/contrib/websocket"

	"github.com/tgvault/backend/internal/core/ports"
	"github.com/tgvault/backend/internal/infrastructure/logger"
	"github.com/tgvault/backend/internal/transport/http/dto"
)

const wsSampleInterval = time.Second

// SyncStreamHandler pushes task snapshots over a websocket so clients can
// watch progress without polling.
type SyncStreamHandler struct {
	sync   ports.SyncService
	logger *logger.Logger
}

func NewSyncStreamHandler(sync ports.SyncService, logger *logger.Logger) *SyncStreamHandler {
	return &SyncStreamHandler{sync: sync, logger: logger}
}

// Handle samples the task once per second and writes a snapshot whenever it
// changed. After a terminal snapshot the connection is closed server-side.
func (h *SyncStreamHandler) Handle(conn *websocket.Conn) {
	defer conn.Close()

	taskID := conn.Params("id")
	ctx := context.Background()

	var last dto.SyncStatusResponse
	ticker := time.NewTicker(wsSampleInterval)
	defer ticker.Stop()

	for {
		task, err := h.sync.GetStatus(ctx, taskID)
		if err != nil {
			conn.WriteJSON(dto.Error("sync task not found"))
			return
		}

		snapshot := dto.TaskToStatusResponse(task)
		if !reflect.DeepEqual(snapshot, last) {
			if err := conn.WriteJSON(snapshot); err != nil {
				return
			}
			last = snapshot
		}

		if snapshot.IsFinished {
			h.logger.Infow("sync_stream_closed", "task_id", taskID, "status", snapshot.Status)
			return
		}

		<-ticker.C
	}
}
