// Package disk provides file-backed access to raw disk images and the
// viper-driven configuration for how they are opened.
package disk

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/viper"

	"github.com/zxrohex/diskstream/internal/cache"
	"github.com/zxrohex/diskstream/internal/extent"
	"github.com/zxrohex/diskstream/internal/streams"
)

// Config holds device handling configuration.
type Config struct {
	CacheEnabled   bool  `mapstructure:"cache_enabled"`
	CacheBlockSize int64 `mapstructure:"cache_block_size"`
	CacheBlocks    int   `mapstructure:"cache_blocks"`
	SectorSize     int64 `mapstructure:"sector_size"`
	Verbose        bool  `mapstructure:"verbose"`
}

// LoadConfig loads device configuration using Viper.
func LoadConfig() (*Config, error) {
	viper.SetConfigName("diskstream-config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("$HOME/.diskstream")
	viper.AddConfigPath("/etc/diskstream")

	viper.SetDefault("cache_enabled", true)
	viper.SetDefault("cache_block_size", 4096)
	viper.SetDefault("cache_blocks", 1024)
	viper.SetDefault("sector_size", 512)
	viper.SetDefault("verbose", false)

	viper.SetEnvPrefix("DISKSTREAM")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults.
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &config, nil
}

// Device is a sparse stream over a raw disk image file. A raw image has no
// allocation metadata, so the whole file counts as one extent.
type Device struct {
	file     *os.File
	size     int64
	writable bool
	pos      int64
}

// Open opens a raw image file.
func Open(path string, writable bool) (*Device, error) {
	flags := os.O_RDONLY
	if writable {
		flags = os.O_RDWR
	}
	file, err := os.OpenFile(path, flags, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open image file: %w", err)
	}
	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat image file: %w", err)
	}
	return &Device{file: file, size: stat.Size(), writable: writable}, nil
}

// OpenStream opens a raw image and applies the configured cache decoration.
func OpenStream(path string, writable bool, config *Config) (streams.SparseStream, error) {
	device, err := Open(path, writable)
	if err != nil {
		return nil, err
	}
	if !config.CacheEnabled {
		return device, nil
	}
	cached, err := cache.New(device, cache.Config{
		BlockSize: config.CacheBlockSize,
		MaxBlocks: config.CacheBlocks,
	}, streams.OwnChildren)
	if err != nil {
		device.Close()
		return nil, err
	}
	if config.Verbose {
		fmt.Printf("[disk] opened %s (%d bytes, cache %dx%d)\n",
			path, device.size, config.CacheBlocks, config.CacheBlockSize)
	}
	return cached, nil
}

func (d *Device) Length() int64 { return d.size }

func (d *Device) CanWrite() bool { return d.writable }

func (d *Device) Extents() []extent.Extent {
	if d.size == 0 {
		return nil
	}
	return []extent.Extent{extent.New(0, d.size)}
}

func (d *Device) ExtentsInRange(start, count int64) []extent.Extent {
	return extent.Clip(d.Extents(), start, count)
}

func (d *Device) ReadAt(p []byte, pos int64) (int, error) {
	if pos < 0 {
		return 0, fmt.Errorf("device read: negative position %d", pos)
	}
	if pos >= d.size {
		return 0, io.EOF
	}
	return d.file.ReadAt(p, pos)
}

func (d *Device) WriteAt(p []byte, pos int64) (int, error) {
	if !d.writable {
		return 0, fmt.Errorf("device write: %w", streams.ErrUnsupportedOperation)
	}
	if pos < 0 || pos+int64(len(p)) > d.size {
		return 0, fmt.Errorf("device write at %d: %d bytes exceed size %d", pos, len(p), d.size)
	}
	return d.file.WriteAt(p, pos)
}

func (d *Device) Read(p []byte) (int, error) {
	n, err := d.ReadAt(p, d.pos)
	d.pos += int64(n)
	return n, err
}

func (d *Device) Write(p []byte) (int, error) {
	n, err := d.WriteAt(p, d.pos)
	d.pos += int64(n)
	return n, err
}

func (d *Device) Seek(offset int64, whence int) (int64, error) {
	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = d.pos + offset
	case io.SeekEnd:
		next = d.size + offset
	default:
		return d.pos, fmt.Errorf("device seek: invalid whence %d", whence)
	}
	if next < 0 {
		return d.pos, fmt.Errorf("device seek: negative position %d", next)
	}
	d.pos = next
	return next, nil
}

func (d *Device) Close() error { return d.file.Close() }
