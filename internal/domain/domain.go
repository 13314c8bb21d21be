package domain

import (
	"github.com/yungbote/recall-backend/internal/domain/chat"
	"github.com/yungbote/recall-backend/internal/domain/jobs"
	"github.com/yungbote/recall-backend/internal/domain/memory"
)

type (
	Session        = chat.Session
	Message        = chat.Message
	SessionSummary = chat.SessionSummary

	Memory           = memory.Memory
	MemoryAttributes = memory.Attributes

	JobRun = jobs.JobRun
)

const (
	RoleUser      = chat.RoleUser
	RoleAssistant = chat.RoleAssistant
	RoleSystem    = chat.RoleSystem

	MemoryStatusActive   = memory.StatusActive
	MemoryStatusOutdated = memory.StatusOutdated

	MemoryTypeFact       = memory.TypeFact
	MemoryTypePreference = memory.TypePreference
	MemoryTypeEvent      = memory.TypeEvent

	JobStatusQueued    = jobs.StatusQueued
	JobStatusRunning   = jobs.StatusRunning
	JobStatusFailed    = jobs.StatusFailed
	JobStatusSucceeded = jobs.StatusSucceeded
	JobStatusDead      = jobs.StatusDead
)
