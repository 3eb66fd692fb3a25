// Package ratelimit 实现按小时/按天双窗口的动作限额。
//
// 限流器是唯一的配额入口：执行任何动作前先 CheckAndReserve，
// 通过即原子占用一个名额，不通过则带回最近的重试时间。
// 计数器通过 Store 落盘，进程重启后窗口内的消耗不会丢失。
package ratelimit
