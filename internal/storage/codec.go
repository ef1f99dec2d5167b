package storage

import (
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Codec сериализует значения хранилищ в JSON, сжатый zstd.
// EncodeAll/DecodeAll безопасны для конкурентного использования.
type Codec struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewCodec создаёт кодек
func NewCodec() (*Codec, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("создание zstd энкодера: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("создание zstd декодера: %w", err)
	}
	return &Codec{enc: enc, dec: dec}, nil
}

// Marshal кодирует значение
func (c *Codec) Marshal(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации: %w", err)
	}
	return c.enc.EncodeAll(raw, make([]byte, 0, len(raw)/2)), nil
}

// Unmarshal декодирует значение
func (c *Codec) Unmarshal(data []byte, v interface{}) error {
	raw, err := c.dec.DecodeAll(data, nil)
	if err != nil {
		return fmt.Errorf("ошибка распаковки: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("ошибка десериализации: %w", err)
	}
	return nil
}

// Close освобождает ресурсы кодека
func (c *Codec) Close() {
	c.enc.Close()
	c.dec.Close()
}
