package errors

import "errors"

// ErrLockHeld 作用域锁已被其他调用方持有
var ErrLockHeld = errors.New("作用域正在被其他任务重建，请稍后重试")

// ErrLockLost 释放锁时发现锁已过期或被他人持有
var ErrLockLost = errors.New("作用域锁已失效")
