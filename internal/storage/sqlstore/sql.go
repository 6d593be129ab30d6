package sqlstore

const questionnaireColumns = `
  id, owner_id, kind, hotel_id, rental_id, cabin_id,
  start_date, end_date, week_key, week_year, week_num,
  submitted_at, notes, payload, created_at, updated_at`

const insertQuestionnaireSQL = `
INSERT INTO questionnaires (` + questionnaireColumns + `)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const updateQuestionnaireSQL = `
UPDATE questionnaires
SET payload      = ?,
    notes        = ?,
    submitted_at = ?,
    updated_at   = ?
WHERE id = ?
`

const existsQuestionnaireSQL = `SELECT 1 FROM questionnaires WHERE id = ?`

const deleteQuestionnaireSQL = `DELETE FROM questionnaires WHERE id = ?`

const selectQuestionnaireSQL = `SELECT` + questionnaireColumns + `
FROM questionnaires`

// Newest week first; ties keep insertion order.
const orderQuestionnairesSQL = `
ORDER BY start_date DESC, created_at ASC, id ASC`

const getEstablishmentSQL = `
SELECT kind, id, owner_id, name, address, city, state, postal_code, property_type, features, active
FROM establishments
WHERE kind = ? AND id = ?`

const upsertEstablishmentMySQL = `
INSERT INTO establishments
  (kind, id, owner_id, name, address, city, state, postal_code, property_type, features, active)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  owner_id      = VALUES(owner_id),
  name          = VALUES(name),
  address       = VALUES(address),
  city          = VALUES(city),
  state         = VALUES(state),
  postal_code   = VALUES(postal_code),
  property_type = VALUES(property_type),
  features      = VALUES(features),
  active        = VALUES(active),
  updated_at    = CURRENT_TIMESTAMP(3)
`

const upsertEstablishmentSQLite = `
INSERT INTO establishments
  (kind, id, owner_id, name, address, city, state, postal_code, property_type, features, active)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (kind, id) DO UPDATE SET
  owner_id      = excluded.owner_id,
  name          = excluded.name,
  address       = excluded.address,
  city          = excluded.city,
  state         = excluded.state,
  postal_code   = excluded.postal_code,
  property_type = excluded.property_type,
  features      = excluded.features,
  active        = excluded.active,
  updated_at    = CURRENT_TIMESTAMP
`
