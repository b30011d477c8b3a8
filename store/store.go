package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"taquilla-cli/model"
)

const (
	bankCacheTTL      = 7 * 24 * time.Hour
	rateCacheTTL      = 10 * time.Minute
	inventoryCacheTTL = 30 * time.Second
	maxReceipts       = 20

	appDir = "taquilla-cli"
)

type cacheEnvelope[T any] struct {
	UpdatedAt time.Time `json:"updated_at"`
	Data      T         `json:"data"`
}

// Receipt is a finished purchase remembered on this machine.
type Receipt struct {
	TransactionId string    `json:"transaction_id"`
	Status        string    `json:"status"`
	Method        string    `json:"method"`
	ZoneName      string    `json:"zone_name"`
	Quantity      int       `json:"quantity"`
	TotalUSD      float64   `json:"total_usd"`
	TicketNumbers []string  `json:"ticket_numbers,omitempty"`
	At            time.Time `json:"at"`
}

type receiptHistory struct {
	Receipts []Receipt `json:"receipts"`
}

func LoadBankCache() ([]model.Bank, bool, error) {
	path, err := cachePath("banks.json")
	if err != nil {
		return nil, false, err
	}
	cache, err := loadCache[[]model.Bank](path)
	if err != nil {
		return nil, false, err
	}
	return cache.Data, fresh(cache.UpdatedAt, bankCacheTTL), nil
}

func SaveBankCache(banks []model.Bank) error {
	path, err := cachePath("banks.json")
	if err != nil {
		return err
	}
	return saveCache(path, banks)
}

func LoadRateCache() (model.ExchangeRate, bool, error) {
	path, err := cachePath("exchange_rate.json")
	if err != nil {
		return model.ExchangeRate{}, false, err
	}
	cache, err := loadCache[model.ExchangeRate](path)
	if err != nil {
		return model.ExchangeRate{}, false, err
	}
	return cache.Data, cache.Data.Rate > 0 && fresh(cache.UpdatedAt, rateCacheTTL), nil
}

func SaveRateCache(rate model.ExchangeRate) error {
	path, err := cachePath("exchange_rate.json")
	if err != nil {
		return err
	}
	return saveCache(path, rate)
}

// LoadInventoryCache returns the last inventory snapshot. Availability is a
// display hint, so the short TTL only limits how stale the hint can get.
func LoadInventoryCache() (model.InventorySnapshot, bool, error) {
	path, err := cachePath("inventory.json")
	if err != nil {
		return model.InventorySnapshot{}, false, err
	}
	cache, err := loadCache[model.InventorySnapshot](path)
	if err != nil {
		return model.InventorySnapshot{}, false, err
	}
	return cache.Data, fresh(cache.UpdatedAt, inventoryCacheTTL), nil
}

func SaveInventoryCache(snapshot model.InventorySnapshot) error {
	path, err := cachePath("inventory.json")
	if err != nil {
		return err
	}
	return saveCache(path, snapshot)
}

func LoadReceipts() ([]Receipt, error) {
	path, err := configPath("receipts.json")
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var history receiptHistory
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, errors.New("invalid receipt history format")
	}
	return history.Receipts, nil
}

// RememberReceipt stores a receipt at the head of the history, replacing an
// older entry for the same transaction.
func RememberReceipt(r Receipt) error {
	if strings.TrimSpace(r.TransactionId) == "" {
		return errors.New("transaction id is required")
	}
	history, _ := LoadReceipts()
	next := []Receipt{r}
	for _, existing := range history {
		if existing.TransactionId == r.TransactionId {
			continue
		}
		next = append(next, existing)
		if len(next) >= maxReceipts {
			break
		}
	}
	return saveReceipts(next)
}

func fresh(updatedAt time.Time, ttl time.Duration) bool {
	return !updatedAt.IsZero() && time.Since(updatedAt) <= ttl
}

func loadCache[T any](path string) (cacheEnvelope[T], error) {
	var cache cacheEnvelope[T]
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cache, nil
		}
		return cache, err
	}
	if err := json.Unmarshal(data, &cache); err != nil {
		return cache, err
	}
	return cache, nil
}

func saveCache[T any](path string, data T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	cache := cacheEnvelope[T]{
		UpdatedAt: time.Now(),
		Data:      data,
	}
	payload, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o644)
}

func saveReceipts(receipts []Receipt) error {
	path, err := configPath("receipts.json")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	payload, err := json.MarshalIndent(receiptHistory{Receipts: receipts}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

func configPath(name string) (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appDir, name), nil
}

func cachePath(name string) (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appDir, name), nil
}
