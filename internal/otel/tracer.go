package otel

import (
	"go.opentelemetry.io/otel"

	"github.com/Alturino/pos/internal/constants"
)

var Tracer = otel.Tracer(constants.AppPos)
