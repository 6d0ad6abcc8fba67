package wizard

import (
	"sync"
	"time"
)

// DefaultSearchDebounce 蓝本搜索的静默期
const DefaultSearchDebounce = 300 * time.Millisecond

// Debouncer 静默期结束后只执行最后一次提交的函数
type Debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	timer *time.Timer
}

// NewDebouncer 创建防抖器，delay <= 0 时使用 DefaultSearchDebounce
func NewDebouncer(delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = DefaultSearchDebounce
	}
	return &Debouncer{delay: delay}
}

// Trigger 重新计时，之前未执行的函数被丢弃
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, fn)
}

// Stop 取消等待中的函数
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
