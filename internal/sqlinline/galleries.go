package sqlinline

const QSelectGallery = `--sql 7f3c2a41-5d0e-4b8a-9c11-3e6f8a2d4b70
select
  g.id,
  g.tenant_id,
  g.title,
  g.status,
  g.locked,
  coalesce(g.allowed_folders, '[]'::jsonb),
  coalesce(g.shared_link_url, ''),
  coalesce(g.first_asset_path, ''),
  coalesce(g.base_folder_path, ''),
  g.ai_unlocked,
  coalesce(g.ai_unlock_type, ''),
  g.ai_video_quota,
  g.ai_generation_started_at,
  coalesce(g.video_links, '[]'::jsonb)
from galleries g
where g.id = $1 and g.tenant_id = $2;
`

// Decrements the quota and stamps the started marker in one statement so an
// accepted start-request pays exactly once. Returns no rows when the quota is
// already exhausted.
const QConsumeVideoQuota = `--sql b19e6c02-8a47-4f3d-b5c2-90d1e7a6f384
update galleries
set ai_video_quota = ai_video_quota - 1,
    ai_generation_started_at = now()
where id = $1 and tenant_id = $2 and ai_video_quota > 0
returning ai_video_quota;
`

const QAppendVideoLink = `--sql 4d8a1f67-2b3c-49e0-8f5d-c7a90b12e456
update galleries
set video_links = coalesce(video_links, '[]'::jsonb) || to_jsonb($3::text)
where id = $1 and tenant_id = $2;
`

const QUpdateBaseFolder = `--sql e2c74b90-6f1a-4d58-a3b7-18f0c9d2e635
update galleries
set base_folder_path = $3
where id = $1 and tenant_id = $2;
`
