package domain

import (
	"fmt"
	"strings"
	"time"
)

// Code is the machine readable result code written with every status
type Code string

const (
	CodeReady            Code = "READY"
	CodeRefresh          Code = "REFRESH"
	CodeConfigListener   Code = "CONFIG_LISTENER_FAIL"
	CodeCommandsListener Code = "COMMANDS_LISTENER_FAIL"
	CodeCommandReceived  Code = "COMMAND_RECEIVED"
	CodeLocked           Code = "LOCKED"
	CodeLockFail         Code = "LOCK_FAIL"
	CodeNoConfig         Code = "FAIL_NO_CONFIG"
	CodeNoTarget         Code = "FAIL_NO_TARGET"
	CodeNoLabel          Code = "FAIL_NO_LABEL"
	CodeContactNotFound  Code = "FAIL_CONTACT_NOT_FOUND"
	CodeBadNumber        Code = "FAIL_BAD_NUMBER"
	CodeApplying         Code = "APPLYING"
	CodeWaitingPopup     Code = "WAITING_POPUP"
	CodeApplyOK          Code = "APPLY_OK"
	CodeRetrying         Code = "RETRYING"
	CodeRetriesExhausted Code = "FAIL_RETRIES_EXHAUSTED"
)

type codeInfo struct {
	running   bool
	resultado string
}

var codes = map[Code]codeInfo{
	CodeReady:            {false, "Listo"},
	CodeRefresh:          {false, "Actualizado"},
	CodeConfigListener:   {false, "Fallo escuchando configuración"},
	CodeCommandsListener: {false, "Fallo escuchando comandos"},
	CodeCommandReceived:  {true, "Comando recibido"},
	CodeLocked:           {true, "Bloqueo adquirido"},
	CodeLockFail:         {false, "Fallo adquiriendo bloqueo"},
	CodeNoConfig:         {false, "Sin configuración"},
	CodeNoTarget:         {false, "Sin destino"},
	CodeNoLabel:          {false, "Sin etiqueta para este móvil"},
	CodeContactNotFound:  {false, "Contacto no encontrado"},
	CodeBadNumber:        {false, "Número inválido"},
	CodeApplying:         {true, "Aplicando..."},
	CodeWaitingPopup:     {true, "Esperando confirmación..."},
	CodeApplyOK:          {false, "Aplicado correctamente"},
	CodeRetrying:         {true, "Reintentando..."},
	CodeRetriesExhausted: {false, "Reintentos agotados"},
}

// Status is "running" while an apply holds the device, "idle" otherwise
func (c Code) Status() string {
	if codes[c].running {
		return "running"
	}
	return "idle"
}

// Resultado is the Spanish result line shown to operators
func (c Code) Resultado() string {
	if i, ok := codes[c]; ok {
		return i.resultado
	}
	return string(c)
}

// Terminal reports whether c ends an apply without a retry
func (c Code) Terminal() bool {
	return strings.HasPrefix(string(c), "FAIL_") || c == CodeLockFail
}

// Motivo values that are written verbatim
const (
	MotivoStart    = "Inicio"
	MotivoConfig   = "Cambio de configuración"
	MotivoRefresh  = "Actualización"
	MotivoListener = "Listener"
	MotivoApply    = "Aplicar"
	MotivoManual   = "Manual"
	MotivoAuto     = "Automático"
)

// Retry motivos
const (
	MotivoApplyFailed = "Fallo al aplicar"
	MotivoUnknown     = "Resultado no reconocido"
	MotivoTimeout     = "Timeout 1 minuto"
)

// ReasonAutoShift is the forced reason carried by boundary applies
const ReasonAutoShift = "Cambio automático de turno"

// ForcedPrefix marks the target name of a force-next-turn apply
const ForcedPrefix = "(Forzado) "

// StatusReason turns a motivo into the operator facing reason
// Lifecycle motivos pass through; apply motivos are replaced by who started the apply
func StatusReason(src Source, motivo string, now time.Time) string {
	switch motivo {
	case MotivoConfig, MotivoRefresh, MotivoStart, MotivoListener:
		return motivo
	}
	switch src {
	case SourceAuto:
		return fmt.Sprintf("Cambio automático por turno (%s)", now.Format("15:04"))
	case SourceManual:
		return "Aplicado manualmente desde la web"
	case SourceForced:
		return "Forzado manual (ignora horario)"
	}
	if motivo == "" {
		return MotivoApply
	}
	return motivo
}

// Derive fills source and trigger for a status written outside an apply context
func Derive(forced bool, code Code, motivo string) (Source, Trigger) {
	auto := strings.HasPrefix(string(code), "AUTO")
	var trig Trigger
	if auto {
		trig = TriggerBoundary
	}
	switch {
	case forced:
		return SourceForced, trig
	case auto || motivo == MotivoAuto:
		return SourceAuto, trig
	default:
		return SourceManual, trig
	}
}
