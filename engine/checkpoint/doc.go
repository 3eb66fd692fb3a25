// Package checkpoint 负责会话快照的持久化与恢复。
//
// 每个目标处理完都会落一份快照，进程崩溃或被封锁中止后，
// 可以从最近的快照接着跑而不重复已完成的目标。
// 提供文件（默认）、内存、Redis 三种后端。
package checkpoint
