// Copyright 2022 Intel Corporation. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package pool runs tasks on a fixed set of worker goroutines. A task
// that panics is contained: the panic is logged and the worker keeps
// serving.
package pool

import (
	"log"
	"sync"

	"github.com/pkg/errors"
)

// Pool dispatches submitted tasks to its workers.
type Pool struct {
	// sendMutex serializes Shutdown against task submission: Submit
	// holds the read side across the channel send so the channel is
	// never closed under an in-flight sender.
	sendMutex sync.RWMutex
	tasks     chan func()
	wg        sync.WaitGroup
	active    sync.WaitGroup
	mutex     sync.Mutex
	queued    int
	shutdown  bool
}

// New creates a pool with the given number of workers.
func New(workers int) (*Pool, error) {
	if workers < 1 {
		return nil, errors.Errorf("pool: invalid worker count %d", workers)
	}
	p := &Pool{
		tasks: make(chan func(), workers),
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p, nil
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		p.run(task)
	}
}

func (p *Pool) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("pool: task panic: %v", r)
		}
		p.mutex.Lock()
		p.queued--
		p.mutex.Unlock()
		p.active.Done()
	}()
	task()
}

// Submit queues a task for execution. It blocks while all workers are
// busy and the queue is full, and fails after Shutdown.
func (p *Pool) Submit(task func()) error {
	p.sendMutex.RLock()
	defer p.sendMutex.RUnlock()
	if p.shutdown {
		return errors.New("pool: submit after shutdown")
	}
	p.mutex.Lock()
	p.queued++
	p.mutex.Unlock()
	p.active.Add(1)

	p.tasks <- task
	return nil
}

// Pending returns the number of tasks queued or running.
func (p *Pool) Pending() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.queued
}

// Wait blocks until every task submitted so far has finished. The pool
// stays usable.
func (p *Pool) Wait() {
	p.active.Wait()
}

// Shutdown stops accepting tasks, waits for queued ones to finish and
// releases the workers.
func (p *Pool) Shutdown() {
	p.sendMutex.Lock()
	if p.shutdown {
		p.sendMutex.Unlock()
		return
	}
	p.shutdown = true
	close(p.tasks)
	p.sendMutex.Unlock()

	p.wg.Wait()
}
