// Package types provides core types used across the agentnet coordination
// engine: the message envelope, agent profiles and capabilities, typed
// payloads, the response envelope, and the error taxonomy.
// This package has ZERO dependencies on other agentnet packages to avoid
// circular imports. All other packages should import types from here.
package types
