// Package rbac implementa el control de acceso por roles, scoped por
// organización: (user, org) -> rol, con jerarquía admin > user > viewer.
//
// El store vive en memoria por diseño (no hay persistencia durable en este
// sistema); se construye una vez al arranque con las asignaciones seed y se
// inyecta por referencia a los consumidores.
package rbac

import (
	"sort"
	"sync"
)

// Role es un rol dentro de una organización.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleUser   Role = "user"
	RoleViewer Role = "viewer"
)

// Rank devuelve el orden total admin(3) > user(2) > viewer(1).
// Roles desconocidos rankean 0 (menos que viewer).
func (r Role) Rank() int {
	switch r {
	case RoleAdmin:
		return 3
	case RoleUser:
		return 2
	case RoleViewer:
		return 1
	default:
		return 0
	}
}

// Valid indica si el rol es uno de los conocidos.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser || r == RoleViewer
}

// Assignment es una asignación (user, org) -> rol.
type Assignment struct {
	UserID string `json:"user_id"`
	OrgID  string `json:"org_id"`
	Role   Role   `json:"role"`
}

type roleKey struct {
	userID string
	orgID  string
}

// Store es la tabla de roles en memoria. Upsert atómico: a lo sumo una
// entrada por (user, org); asignar de nuevo reemplaza, nunca duplica.
type Store struct {
	mu    sync.RWMutex
	roles map[roleKey]Role
}

func NewStore(seed []Assignment) *Store {
	s := &Store{roles: make(map[roleKey]Role, len(seed))}
	for _, a := range seed {
		if a.Role.Valid() {
			s.roles[roleKey{a.UserID, a.OrgID}] = a.Role
		}
	}
	return s
}

// GetRole devuelve el rol asignado, o viewer (mínimo privilegio) si no hay
// entrada.
func (s *Store) GetRole(userID, orgID string) Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.roles[roleKey{userID, orgID}]; ok {
		return r
	}
	return RoleViewer
}

// HasRole responde si el rol efectivo alcanza el requerido según jerarquía.
func (s *Store) HasRole(userID, orgID string, required Role) bool {
	return s.GetRole(userID, orgID).Rank() >= required.Rank()
}

// IsAdmin chequea rol admin exacto (por jerarquía, sólo admin rankea 3).
func (s *Store) IsAdmin(userID, orgID string) bool {
	return s.HasRole(userID, orgID, RoleAdmin)
}

// CanInviteUsers requiere al menos rol user.
func (s *Store) CanInviteUsers(userID, orgID string) bool {
	return s.HasRole(userID, orgID, RoleUser)
}

// SetUserRole upsertea la asignación para (user, org).
func (s *Store) SetUserRole(userID, orgID string, role Role) {
	if !role.Valid() {
		return
	}
	s.mu.Lock()
	s.roles[roleKey{userID, orgID}] = role
	s.mu.Unlock()
}

// ListUserRoles devuelve todas las asignaciones explícitas de un usuario,
// ordenadas por org para salida determinística.
func (s *Store) ListUserRoles(userID string) []Assignment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Assignment
	for k, r := range s.roles {
		if k.userID == userID {
			out = append(out, Assignment{UserID: k.userID, OrgID: k.orgID, Role: r})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrgID < out[j].OrgID })
	return out
}
