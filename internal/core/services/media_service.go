package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/tgvault/backend/internal/core/ports"
	"github.com/tgvault/backend/internal/domain"
	"github.com/tgvault/backend/internal/infrastructure/logger"
	"github.com/tgvault/backend/pkg/utils/crypto"
)

type mediaService struct {
	messages ports.MessageRepository
	chats    ports.ChatRepository
	accounts ports.AccountRepository
	hashes   ports.MediaHashRepository
	gateway  ports.TelegramGateway
	cipher   *crypto.Cipher
	logger   *logger.Logger

	storageDir string
}

type MediaServiceConfig struct {
	Messages ports.MessageRepository
	Chats    ports.ChatRepository
	Accounts ports.AccountRepository
	Hashes   ports.MediaHashRepository
	Gateway  ports.TelegramGateway
	Cipher   *crypto.Cipher
	Logger   *logger.Logger

	StorageDir string
}

func NewMediaService(cfg MediaServiceConfig) ports.MediaService {
	return &mediaService{
		messages:   cfg.Messages,
		chats:      cfg.Chats,
		accounts:   cfg.Accounts,
		hashes:     cfg.Hashes,
		gateway:    cfg.Gateway,
		cipher:     cfg.Cipher,
		logger:     cfg.Logger,
		storageDir: cfg.StorageDir,
	}
}

// TriggerDownload fetches a message's media to local storage on demand,
// hashes it, and reports duplicates already held for other messages.
func (s *mediaService) TriggerDownload(ctx context.Context, messageID uint) (*ports.MediaDownloadResult, error) {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, ErrMessageNotFound
	}
	if !msg.HasMedia {
		return nil, ErrNoMedia
	}

	// Already on disk from an earlier trigger.
	if msg.MediaFilePath != "" {
		if _, err := os.Stat(msg.MediaFilePath); err == nil {
			return &ports.MediaDownloadResult{
				FileName: msg.MediaFileName,
				FileSize: msg.MediaFileSize,
			}, nil
		}
	}

	chat, err := s.chats.GetByID(ctx, msg.ChatID)
	if err != nil {
		return nil, ErrMessageNotFound
	}
	account, err := s.accounts.GetByID(ctx, chat.AccountID)
	if err != nil {
		return nil, ErrAccountNotFound
	}
	session, err := s.cipher.Decrypt(account.SessionString)
	if err != nil {
		return nil, ErrSyncNoSession
	}

	file, err := s.gateway.DownloadMedia(ctx, session, chat.ChatID, msg.MessageID, s.storageDir)
	if err != nil {
		s.logger.Errorw("media_download_failed", "message_id", messageID, "error", err)
		return nil, ErrDownloadFailed
	}

	msg.MediaFilePath = file.Path
	msg.MediaFileName = file.FileName
	msg.MediaFileSize = file.FileSize
	if file.MimeType != "" {
		msg.MediaMimeType = file.MimeType
	}
	if err := s.messages.Update(ctx, msg); err != nil {
		s.logger.Errorw("media_message_update_failed", "message_id", messageID, "error", err)
	}

	result := &ports.MediaDownloadResult{
		FileName: file.FileName,
		FileSize: file.FileSize,
	}

	fileHash, err := hashFile(file.Path)
	if err != nil {
		s.logger.Warnw("media_hash_failed", "message_id", messageID, "error", err)
		return result, nil
	}
	perceptualHash := averageHash(file.Path)

	if _, err := s.hashes.GetByMessageID(ctx, messageID); err != nil {
		hash := &domain.MediaHash{
			MessageID:      messageID,
			FileHash:       fileHash,
			PerceptualHash: perceptualHash,
			FileSize:       file.FileSize,
		}
		if err := s.hashes.Create(ctx, hash); err != nil {
			s.logger.Warnw("media_hash_store_failed", "message_id", messageID, "error", err)
		}
	}

	seen := map[uint]bool{}
	if duplicates, err := s.hashes.FindByFileHash(ctx, fileHash, messageID); err == nil {
		for _, d := range duplicates {
			if !seen[d.MessageID] {
				seen[d.MessageID] = true
				result.DuplicateOf = append(result.DuplicateOf, d.MessageID)
			}
		}
	}
	// Perceptual matches catch re-encoded copies the byte hash misses.
	if perceptualHash != "" {
		if duplicates, err := s.hashes.FindByPerceptualHash(ctx, perceptualHash, messageID); err == nil {
			for _, d := range duplicates {
				if !seen[d.MessageID] {
					seen[d.MessageID] = true
					result.DuplicateOf = append(result.DuplicateOf, d.MessageID)
				}
			}
		}
	}
	result.Duplicate = len(result.DuplicateOf) > 0

	s.logger.Infow("media_downloaded", "message_id", messageID,
		"file", file.FileName, "size", file.FileSize, "duplicate", result.Duplicate)
	return result, nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// averageHash computes a 64-bit perceptual hash: the image is reduced to an
// 8x8 grayscale grid and each bit records whether its cell is brighter than
// the grid mean. Re-encoded or resized copies of the same picture hash equal
// even when their bytes differ. Non-image files yield an empty hash.
func averageHash(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return ""
	}

	const grid = 8
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w < grid || h < grid {
		return ""
	}

	var sums, counts [grid][grid]uint64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			g := color.GrayModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray)
			sums[y*grid/h][x*grid/w] += uint64(g.Y)
			counts[y*grid/h][x*grid/w]++
		}
	}

	var cells [grid][grid]uint64
	var total uint64
	for cy := 0; cy < grid; cy++ {
		for cx := 0; cx < grid; cx++ {
			cells[cy][cx] = sums[cy][cx] / counts[cy][cx]
			total += cells[cy][cx]
		}
	}
	mean := total / (grid * grid)

	var hash uint64
	for cy := 0; cy < grid; cy++ {
		for cx := 0; cx < grid; cx++ {
			hash <<= 1
			if cells[cy][cx] > mean {
				hash |= 1
			}
		}
	}
	return fmt.Sprintf("%016x", hash)
}
