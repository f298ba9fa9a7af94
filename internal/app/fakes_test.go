// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bytes"
	"sync"

	"github.com/pkg/errors"

	"github.com/relabs-tech/bmx160/internal/imu"
)

type fakeSource struct {
	mu      sync.Mutex
	samples []imu.Sample // returned in order, the last one repeats
	err     error
	reads   int
	regs    map[byte]byte
	reinits int
}

func (f *fakeSource) ReadSample() (imu.Sample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.err != nil {
		return imu.Sample{}, f.err
	}
	i := f.reads - 1
	if i >= len(f.samples) {
		i = len(f.samples) - 1
	}
	return f.samples[i], nil
}

func (f *fakeSource) readCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

func (f *fakeSource) ReadRegister(reg byte) (byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	return f.regs[reg], nil
}

func (f *fakeSource) WriteRegister(reg, value byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.regs == nil {
		f.regs = map[byte]byte{}
	}
	f.regs[reg] = value
	return nil
}

func (f *fakeSource) Reinit() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reinits++
	return nil
}

type published struct {
	topic   string
	payload []byte
}

// fakeBroker is an in memory Publisher and Subscriber.
type fakeBroker struct {
	mu       sync.Mutex
	msgs     []published
	handlers map[string][]func([]byte)
	failOn   string
}

func (b *fakeBroker) Publish(topic string, payload []byte) error {
	if topic == b.failOn {
		return errors.Errorf("mqtt publish %s: refused", topic)
	}
	b.mu.Lock()
	b.msgs = append(b.msgs, published{topic, payload})
	hs := b.handlers[topic]
	b.mu.Unlock()
	for _, h := range hs {
		h(payload)
	}
	return nil
}

func (b *fakeBroker) Subscribe(topic string, handler func([]byte)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.handlers == nil {
		b.handlers = map[string][]func([]byte){}
	}
	b.handlers[topic] = append(b.handlers[topic], handler)
	return nil
}

func (b *fakeBroker) subscribed(topic string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handlers[topic]) > 0
}

// syncBuffer is a bytes.Buffer safe for one writer and one reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
