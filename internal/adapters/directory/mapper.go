package directory

import (
	"strconv"
	"strings"

	"tourism_occupancy/internal/domain"
)

/********** alias registries (single source of truth) **********/

// The listings service has served both English and Spanish documents.
var establishmentAliases = map[string][]string{
	"name":         {"name", "nombre", "nombreEstablecimiento", "title"},
	"owner":        {"ownerId", "owner_id", "owner.id", "owner._id", "propietario", "propietario.id", "propietario._id", "userId", "usuario"},
	"address":      {"location.address", "ubicacion.direccion", "address", "direccion"},
	"city":         {"location.city", "ubicacion.ciudad", "ubicacion.municipio", "city", "ciudad", "municipio"},
	"state":        {"location.state", "ubicacion.estado", "state", "estado"},
	"postal":       {"location.postalCode", "ubicacion.codigoPostal", "ubicacion.cp", "postalCode", "codigoPostal", "cp"},
	"propertyType": {"propertyType", "property_type", "tipoPropiedad", "tipo"},
	"features":     {"features", "caracteristicas"},
	"active":       {"active", "activo", "isActive"},
}

// envelopes some deployments wrap the document in
var envelopes = []string{"data", "establishment", "establecimiento", "hotel", "rental", "cabin", "cabana"}

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// firstString: first non-empty string (or number rendered as text) for an alias set.
func firstString(m map[string]any, key string) string {
	for _, p := range establishmentAliases[key] {
		switch v := lookupAny(m, p).(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

// firstBool accepts JSON booleans and "true"/"false"/"1"/"0" strings. Missing means true.
func firstBool(m map[string]any, key string) bool {
	for _, p := range establishmentAliases[key] {
		switch v := lookupAny(m, p).(type) {
		case bool:
			return v
		case float64:
			return v != 0
		case string:
			if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
				return b
			}
		}
	}
	return true
}

func firstMap(m map[string]any, key string) map[string]any {
	for _, p := range establishmentAliases[key] {
		if v, ok := lookupAny(m, p).(map[string]any); ok && len(v) > 0 {
			return v
		}
	}
	return nil
}

// unwrap descends into a known envelope when the document itself has no name.
func unwrap(m map[string]any) map[string]any {
	if firstString(m, "name") != "" {
		return m
	}
	for _, k := range envelopes {
		if inner, ok := m[k].(map[string]any); ok {
			return inner
		}
	}
	return m
}

/********** establishment mapper **********/

func mapEstablishment(raw map[string]any) domain.Establishment {
	m := unwrap(raw)
	e := domain.Establishment{
		OwnerID:      firstString(m, "owner"),
		Name:         firstString(m, "name"),
		PropertyType: firstString(m, "propertyType"),
		Features:     firstMap(m, "features"),
		Active:       firstBool(m, "active"),
		Location: domain.Location{
			Address:    firstString(m, "address"),
			City:       firstString(m, "city"),
			State:      firstString(m, "state"),
			PostalCode: firstString(m, "postal"),
		},
	}
	return e
}
