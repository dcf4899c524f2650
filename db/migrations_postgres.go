package db

// PostgreSQL-specific migrations for Later

var postgresMigrations = []Migration{
	{
		Version: 1,
		Name:    "create_later_users_table",
		Up: `
			CREATE TABLE IF NOT EXISTS later_users (
				id TEXT PRIMARY KEY,
				first_name TEXT NOT NULL,
				last_name TEXT NOT NULL,
				email TEXT NOT NULL,
				state TEXT NOT NULL DEFAULT 'ACTIVE',
				date_of_birth TIMESTAMPTZ,
				registration_date TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_later_users_email ON later_users(email);
		`,
		Down: `
			DROP INDEX IF EXISTS idx_later_users_email;
			DROP TABLE IF EXISTS later_users;
		`,
	},
	{
		Version: 2,
		Name:    "create_later_items_table",
		Up: `
			CREATE TABLE IF NOT EXISTS later_items (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				url TEXT NOT NULL,
				resolved_url TEXT NOT NULL UNIQUE,
				mime_type TEXT,
				title TEXT,
				has_image BOOLEAN NOT NULL DEFAULT FALSE,
				has_video BOOLEAN NOT NULL DEFAULT FALSE,
				date_resolved TIMESTAMPTZ NOT NULL,
				unread BOOLEAN NOT NULL DEFAULT TRUE,
				FOREIGN KEY (user_id) REFERENCES later_users(id)
			);
			CREATE INDEX IF NOT EXISTS idx_later_items_user_id ON later_items(user_id);
			CREATE INDEX IF NOT EXISTS idx_later_items_date_resolved ON later_items(date_resolved);
		`,
		Down: `
			DROP INDEX IF EXISTS idx_later_items_date_resolved;
			DROP INDEX IF EXISTS idx_later_items_user_id;
			DROP TABLE IF EXISTS later_items;
		`,
	},
	{
		Version: 3,
		Name:    "create_later_item_tags_table",
		Up: `
			CREATE TABLE IF NOT EXISTS later_item_tags (
				item_id TEXT NOT NULL,
				name TEXT NOT NULL,
				PRIMARY KEY (item_id, name),
				FOREIGN KEY (item_id) REFERENCES later_items(id) ON DELETE CASCADE
			);
			CREATE INDEX IF NOT EXISTS idx_later_item_tags_name ON later_item_tags(name);
		`,
		Down: `
			DROP INDEX IF EXISTS idx_later_item_tags_name;
			DROP TABLE IF EXISTS later_item_tags;
		`,
	},
	{
		Version: 4,
		Name:    "create_later_item_notes_table",
		Up: `
			CREATE TABLE IF NOT EXISTS later_item_notes (
				id TEXT PRIMARY KEY,
				item_id TEXT NOT NULL,
				note TEXT NOT NULL,
				date_of_note TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				FOREIGN KEY (item_id) REFERENCES later_items(id) ON DELETE CASCADE
			);
			CREATE INDEX IF NOT EXISTS idx_later_item_notes_item_id ON later_item_notes(item_id);
		`,
		Down: `
			DROP INDEX IF EXISTS idx_later_item_notes_item_id;
			DROP TABLE IF EXISTS later_item_notes;
		`,
	},
}
