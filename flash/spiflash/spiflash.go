// Package spiflash implements flash.Driver against a real SPI NOR flash
// chip using periph.io's host and conn packages. Command set and timing
// adapted from a JEDEC-style SPI NOR driver (N25Q32/W25Q128 command
// tables); the page-program/subsector-erase split mirrors that driver's
// Erase helper.
package spiflash

import (
	"context"
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/host/v3"
)

const (
	cmdRead        = 0x03
	cmdWriteEnable = 0x06
	cmdPageProgram = 0x02
	cmdErase4KB    = 0x20
	cmdReadStatus  = 0x05

	// pageProgramSize is the maximum number of data bytes a single Page
	// Program command accepts.
	pageProgramSize = 256
	// sectorEraseSize is the erase granularity of the 0x20 command.
	sectorEraseSize = 4 << 10
)

// Flash drives one SPI NOR chip as a flash.Driver. ReadSize is always 1;
// WriteSize and EraseSize are supplied by the caller to match the log
// layout they intend to run (they need not equal pageProgramSize /
// sectorEraseSize, only divide them).
type Flash struct {
	conn spi.Conn
	cs   gpio.PinIO

	writeSize uint32
	eraseSize uint32
}

// Init calls host.Init() once per process, as periph.io requires before
// any driver registers peripherals. Callers that already initialize
// periph.io elsewhere should skip calling this.
func Init() error {
	_, err := host.Init()
	return err
}

// New wraps an already-opened SPI connection and chip-select pin.
// writeSize and eraseSize must each divide pageProgramSize and
// sectorEraseSize respectively; New returns an error otherwise.
func New(conn spi.Conn, cs gpio.PinIO, writeSize, eraseSize uint32) (*Flash, error) {
	if pageProgramSize%int(writeSize) != 0 {
		return nil, fmt.Errorf("spiflash: write size %d must divide page program size %d", writeSize, pageProgramSize)
	}
	if sectorEraseSize%int(eraseSize) != 0 {
		return nil, fmt.Errorf("spiflash: erase size %d must divide sector size %d", eraseSize, sectorEraseSize)
	}
	return &Flash{conn: conn, cs: cs, writeSize: writeSize, eraseSize: eraseSize}, nil
}

func (f *Flash) ReadSize() uint32  { return 1 }
func (f *Flash) WriteSize() uint32 { return f.writeSize }
func (f *Flash) EraseSize() uint32 { return f.eraseSize }

// tx wraps one SPI transaction with chip-select assertion, as the
// reference driver's tx helper does.
func (f *Flash) tx(buf []byte) (err error) {
	if err = f.cs.Out(gpio.Low); err != nil {
		return err
	}
	defer func() {
		if csErr := f.cs.Out(gpio.High); csErr != nil && err == nil {
			err = csErr
		}
	}()
	return f.conn.Tx(buf, buf)
}

func (f *Flash) Read(ctx context.Context, addr uint32, buf []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	const cmdBytes = 4
	tx := make([]byte, cmdBytes+len(buf))
	tx[0] = cmdRead
	tx[1] = byte(addr >> 16)
	tx[2] = byte(addr >> 8)
	tx[3] = byte(addr)
	if err := f.tx(tx); err != nil {
		return fmt.Errorf("spiflash: read at 0x%X: %w", addr, err)
	}
	copy(buf, tx[cmdBytes:])
	return nil
}

func (f *Flash) writeEnable() error {
	return f.tx([]byte{cmdWriteEnable})
}

func (f *Flash) pageProgram(addr uint32, data []byte) error {
	if len(data) > pageProgramSize {
		return fmt.Errorf("spiflash: page program of %d bytes exceeds %d", len(data), pageProgramSize)
	}
	if err := f.writeEnable(); err != nil {
		return err
	}
	buf := make([]byte, 4+len(data))
	buf[0] = cmdPageProgram
	buf[1] = byte(addr >> 16)
	buf[2] = byte(addr >> 8)
	buf[3] = byte(addr)
	copy(buf[4:], data)
	if err := f.tx(buf); err != nil {
		return err
	}
	return f.busyWait(100*time.Microsecond, 3*time.Millisecond)
}

// Write performs Page Program in pageProgramSize-aligned chunks so a
// write spanning multiple flash pages is split automatically.
func (f *Flash) Write(ctx context.Context, addr uint32, buf []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	off := 0
	for off < len(buf) {
		chunk := pageProgramSize - int(addr+uint32(off))%pageProgramSize
		if chunk > len(buf)-off {
			chunk = len(buf) - off
		}
		if err := f.pageProgram(addr+uint32(off), buf[off:off+chunk]); err != nil {
			return fmt.Errorf("spiflash: write at 0x%X: %w", addr+uint32(off), err)
		}
		off += chunk
	}
	return nil
}

func (f *Flash) erase4KB(addr uint32) error {
	if err := f.writeEnable(); err != nil {
		return err
	}
	buf := []byte{cmdErase4KB, byte(addr >> 16), byte(addr >> 8), byte(addr)}
	if err := f.tx(buf); err != nil {
		return err
	}
	return f.busyWait(50*time.Millisecond, 400*time.Millisecond)
}

// Erase erases [start, end) using the chip's 4KB subsector command,
// which the caller's erase size must evenly divide.
func (f *Flash) Erase(ctx context.Context, start, end uint32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for addr := start - start%sectorEraseSize; addr < end; addr += sectorEraseSize {
		if err := f.erase4KB(addr); err != nil {
			return fmt.Errorf("spiflash: erase at 0x%X: %w", addr, err)
		}
	}
	return nil
}

func (f *Flash) readStatus() (byte, error) {
	buf := []byte{cmdReadStatus, 0}
	if err := f.tx(buf); err != nil {
		return 0, err
	}
	return buf[1], nil
}

// busyWait polls the status register's BUSY bit (bit 0) until it clears
// or timeout elapses.
func (f *Flash) busyWait(interval, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		sr, err := f.readStatus()
		if err != nil {
			return err
		}
		if sr&0x01 == 0 {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("spiflash: timed out waiting for BUSY to clear")
		}
		time.Sleep(interval)
	}
}
